/*
Package scheduler runs worker pool tasks at a fixed time, on an interval or
on a cron schedule. The fanout watch command uses it to repeat an
aggregation.

	s := scheduler.NewWithConfig(scheduler.Config{SkipIfRunning: true})
	if err := s.ScheduleCron("prices", "@every 10s", task); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

Cron expressions use the standard five fields with an optional leading
seconds field, plus the descriptors understood by robfig/cron (@hourly,
@daily, @every 1m30s and so on). Expressions are evaluated in
Config.Location.

Tasks run on Config.WorkerPool, or on a small pool owned by the scheduler.
Every run receives a context that Stop cancels. Tasks should return
promptly once it is done. Failures are logged and do not unschedule the
task.
*/
package scheduler
