package concurrency

func (cl *concurrencyLimiter) snapshotWaiters() []waiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]waiter(nil), cl.waiters...)
}
