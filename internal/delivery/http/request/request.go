package request

import (
	"github.com/user/harvest-service/internal/entity"
	"github.com/user/harvest-service/internal/usecase"
)

type ScheduleRequest struct {
	Name           string `json:"name"`
	SourceURL      string `json:"source_url"`
	MaxPages       int    `json:"max_pages"`
	DelayMs        int    `json:"delay_ms"`
	CronExpression string `json:"cron_expression"`
	Engine         string `json:"engine"`     // "lightweight", "headless" or empty for the source default
	IsActive       *bool  `json:"is_active"` // defaults to true
}

func (r ScheduleRequest) Input() (entity.ScheduleInput, error) {
	engine, err := entity.ParseEngineKind(r.Engine)
	if err != nil {
		return entity.ScheduleInput{}, err
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return entity.ScheduleInput{
		Name:           r.Name,
		SourceURL:      r.SourceURL,
		MaxPages:       r.MaxPages,
		DelayMs:        r.DelayMs,
		CronExpression: r.CronExpression,
		Engine:         engine,
		IsActive:       active,
	}, nil
}

type RunRequest struct {
	SourceURL string `json:"source_url"`
	MaxPages  int    `json:"max_pages"`
	DelayMs   int    `json:"delay_ms"`
	Engine    string `json:"engine"`
	Fallback  bool   `json:"fallback"`
}

func (r RunRequest) Request() (usecase.RunRequest, error) {
	engine, err := entity.ParseEngineKind(r.Engine)
	if err != nil {
		return usecase.RunRequest{}, err
	}
	return usecase.RunRequest{
		SourceURL: r.SourceURL,
		MaxPages:  r.MaxPages,
		DelayMs:   r.DelayMs,
		Engine:    engine,
		Fallback:  r.Fallback,
	}, nil
}
