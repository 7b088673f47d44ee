package agent

import (
	"time"

	"github.com/robfig/cron/v3"
)

// runScheduledAction drives one recurring registration. The timer re-arms
// strictly after the previous execution settles, so one action's invocations
// never overlap; different actions and different agents interleave freely.
func (a *Actor) runScheduledAction(action ScheduledAction) {
	defer a.wg.Done()

	var schedule cron.Schedule
	if action.Cron != "" {
		// Validated during NewActor.
		schedule, _ = cron.ParseStandard(action.Cron)
	}

	timer := time.NewTimer(nextDelay(schedule, action.Every))
	defer timer.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-timer.C:
			finished := make(chan struct{})
			select {
			case a.mailbox <- fireCommand{action: action, finished: finished}:
			case <-a.done:
				return
			}
			// Wait for the supervised cell before re-arming.
			select {
			case <-finished:
			case <-a.done:
				return
			}
			timer.Reset(nextDelay(schedule, action.Every))
		}
	}
}

func nextDelay(schedule cron.Schedule, every time.Duration) time.Duration {
	if schedule == nil {
		return every
	}
	now := time.Now()
	delay := schedule.Next(now).Sub(now)
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}
