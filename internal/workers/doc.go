/*
Package workers sizes and runs the bounded pool that executes encoder
invocations.

# Sizing

When running in a container the number of usable CPUs may be limited by
cgroup constraints. runtime.NumCPU() still reports the host's CPU count, while
runtime.GOMAXPROCS(0) follows the container limit (Go 1.19+). [Count] and its
helpers derive worker counts from GOMAXPROCS:

	// One encoder per available CPU, never more than 4
	size := workers.ForCPU(4)

The ENCODE_WORKERS environment variable pins the count explicitly, still
subject to the limit passed in.

# Pool

Encoding is CPU-bound and can run for minutes. [Pool] caps how many encoder
processes run at the same time across all pipeline runs. Submitting never
blocks the caller; it returns a channel that yields the job's result:

	pool := workers.NewPool(workers.ForCPU(4))
	err := <-pool.Submit(ctx, func(ctx context.Context) error {
		return encoder.Encode(ctx, job)
	})

Jobs waiting for a slot give up when their context is cancelled.
*/
package workers
