package bucket_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/ratelimit/bucket"
)

// Example demonstrates basic usage of the token bucket rate limiter
func Example() {
	// 10 queries per second with a burst of 2.
	limiter, err := bucket.NewSafe(10, 2)
	if err != nil {
		panic(fmt.Sprintf("Failed to create limiter: %v", err))
	}

	for i := 0; i < 3; i++ {
		fmt.Println(limiter.Allow())
	}

	// Output:
	// true
	// true
	// false
}

// Example_wait shows a query deadline that is too short for the next token.
func Example_wait() {
	limiter, err := bucket.NewSafe(bucket.Every(time.Second), 1)
	if err != nil {
		panic(fmt.Sprintf("Failed to create limiter: %v", err))
	}

	if err := limiter.Wait(context.Background()); err == nil {
		fmt.Println("first query admitted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx)
	fmt.Println("second query rate limited:", errors.Is(err, gferrors.ErrRateLimited))

	// Output:
	// first query admitted
	// second query rate limited: true
}
