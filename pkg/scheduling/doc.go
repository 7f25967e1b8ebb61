/*
Package scheduling groups the execution primitives behind fanout.

  - workerpool: a fixed pool of workers. The aggregator submits one task
    per source to it and sizes an owned pool as min(sources, max workers).
  - scheduler: interval and cron schedules that run tasks on a worker
    pool. fanout watch uses it to refresh prices periodically.

Both take a context on every blocking call and shut down without leaking
goroutines.
*/
package scheduling
