package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/LJTian/ContentHub/internal/orchestrator"
	"github.com/robfig/cron/v3"
)

// Scheduler 用 cron 周期性触发采集；每次触发就是一轮独立的 scrape pass
type Scheduler struct {
	cron *cron.Cron
	orch *orchestrator.Orchestrator
}

func New(spec string, orch *orchestrator.Orchestrator) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron: c,
		orch: orch,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动期的请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，手动触发采集时使用
func (s *Scheduler) RunOnce() orchestrator.Outcome {
	return s.orch.RunScrapePass(context.Background())
}

func (s *Scheduler) runOnce() {
	out := s.orch.RunScrapePass(context.Background())
	log.Printf("scheduled scrape: success=%d failed=%d duplicates=%d processed=%d",
		out.Success, out.Failed, out.Duplicates, out.TotalProcessed)
}
