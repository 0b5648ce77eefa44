package scheduler

import (
	"context"
	"time"

	"github.com/lendfabric/repayment-engine/internal/engine/accrual"
)

// AccrualJob runs the nightly late-fee accrual.
type AccrualJob struct {
	engine *accrual.Engine
}

func NewAccrualJob(engine *accrual.Engine) *AccrualJob {
	return &AccrualJob{engine: engine}
}

func (j *AccrualJob) Name() string {
	return "late_fee_accrual"
}

func (j *AccrualJob) Run(ctx context.Context) error {
	_, err := j.engine.Run(ctx, time.Now(), accrual.ModeScheduled)
	return err
}
