package qobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	. "github.com/smartystreets/goconvey/convey"
)

const timeoutMsg = "Test timed out waiting for value retrieval"

func await(t *testing.T, ch chan Result) Result {
	select {
	case <-time.After(2 * time.Second):
		t.Fatal(timeoutMsg)
		return Result{}
	case res := <-ch:
		return res
	}
}

func TestPool(t *testing.T) {
	Convey("Given a new pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := NewConfig()
		cfg.JobTimeout = 100 * time.Millisecond
		q := NewQ(ctx, 2, cfg)

		Reset(func() {
			q.Close()
			cancel()
		})

		Convey("When scheduling a simple job", func() {
			res := await(t, q.Schedule("test-job", func() (any, error) {
				return "success", nil
			}))

			So(res.Error, ShouldBeNil)
			So(res.Value, ShouldEqual, "success")
		})

		Convey("When a job fails", func() {
			res := await(t, q.Schedule("failing-job", func() (any, error) {
				return nil, errors.New("boom")
			}))

			So(res.Error, ShouldNotBeNil)
			So(res.Error.Error(), ShouldContainSubstring, "boom")
			So(q.Metrics().Snapshot().FailedJobs, ShouldEqual, 1)
		})

		Convey("When a job panics", func() {
			res := await(t, q.Schedule("panic-job", func() (any, error) {
				panic("kaboom")
			}))

			So(errors.Is(res.Error, ErrJobPanicked), ShouldBeTrue)
		})

		Convey("When a job overruns its timeout", func() {
			res := await(t, q.Schedule("slow-job", func() (any, error) {
				time.Sleep(500 * time.Millisecond)
				return "late", nil
			}))

			So(errors.Is(res.Error, ErrJobTimeout), ShouldBeTrue)
			So(res.Value, ShouldBeNil)
		})

		Convey("When many jobs are scheduled", func() {
			channels := make([]chan Result, 50)
			for i := range channels {
				n := i
				channels[i] = q.Schedule(fmt.Sprintf("job-%d", i), func() (any, error) {
					return n, nil
				})
			}

			sum := 0
			for _, ch := range channels {
				res := await(t, ch)
				So(res.Error, ShouldBeNil)
				sum += res.Value.(int)
			}
			So(sum, ShouldEqual, 49*50/2)

			snap := q.Metrics().Snapshot()
			So(snap.WorkerCount, ShouldEqual, 2)
			So(snap.JobCount, ShouldEqual, 50)
			So(snap.P99JobLatency, ShouldBeGreaterThanOrEqualTo, snap.P95JobLatency)
		})
	})

	Convey("Given a single worker and a short scheduling timeout", t, func() {
		cfg := NewConfig()
		cfg.SchedulingTimeout = 50 * time.Millisecond
		cfg.JobTimeout = 5 * time.Second
		q := NewQ(context.Background(), 1, cfg)

		Reset(func() {
			q.Close()
		})

		Convey("A queued job should wait out a slow one", func() {
			slow := q.Schedule("slow", func() (any, error) {
				time.Sleep(200 * time.Millisecond)
				return "slow", nil
			})
			next := q.Schedule("next", func() (any, error) {
				return "next", nil
			})

			So(await(t, slow).Error, ShouldBeNil)

			res := await(t, next)
			So(res.Error, ShouldBeNil)
			So(res.Value, ShouldEqual, "next")
			So(q.Metrics().Snapshot().SchedulingFailures, ShouldEqual, 0)
		})

		Convey("A full queue should reject jobs after the timeout", func() {
			release := make(chan struct{})
			channels := []chan Result{q.Schedule("blocker", func() (any, error) {
				<-release
				return nil, nil
			})}

			// One job on the worker, one held by the manager, ten queued.
			for i := 0; i < 15; i++ {
				channels = append(channels, q.Schedule(fmt.Sprintf("filler-%d", i), func() (any, error) {
					return nil, nil
				}))
			}
			close(release)

			rejected := 0
			for _, ch := range channels {
				if res := await(t, ch); errors.Is(res.Error, ErrSchedulingTimeout) {
					rejected++
				}
			}

			So(rejected, ShouldBeGreaterThanOrEqualTo, 3)
			So(q.Metrics().Snapshot().SchedulingFailures, ShouldEqual, int64(rejected))
		})
	})

	Convey("Given jobs scheduled while the pool closes", t, func() {
		q := NewQ(context.Background(), 2, nil)

		var (
			mu       sync.Mutex
			channels []chan Result
			wg       sync.WaitGroup
		)
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					ch := q.Schedule(fmt.Sprintf("race-%d-%d", g, i), func() (any, error) {
						return i, nil
					})
					mu.Lock()
					channels = append(channels, ch)
					mu.Unlock()
				}
			}()
		}

		time.Sleep(time.Millisecond)
		q.Close()
		wg.Wait()

		Convey("Every job should still receive a result", func() {
			for _, ch := range channels {
				res := await(t, ch)
				if res.Error != nil && !errors.Is(res.Error, ErrPoolClosed) {
					t.Errorf("unexpected result: %s", spew.Sdump(res))
				}
			}
			So(channels, ShouldHaveLength, 100)
		})
	})

	Convey("Given a closed pool", t, func() {
		q := NewQ(context.Background(), 1, nil)
		q.Close()

		res := await(t, q.Schedule("after-close", func() (any, error) {
			return "never", nil
		}))
		So(errors.Is(res.Error, ErrPoolClosed), ShouldBeTrue)
	})
}

func TestResultSpace(t *testing.T) {
	Convey("Given a result space", t, func() {
		rs := newResultSpace(time.Minute)

		Reset(func() {
			rs.Close()
		})

		Convey("A value stored before awaiting should be delivered", func() {
			rs.Store("early", "value", nil, time.Minute)
			res := await(t, rs.Await("early"))
			So(res.Value, ShouldEqual, "value")
		})

		Convey("Every waiter should receive a value stored later", func() {
			a := rs.Await("late")
			b := rs.Await("late")
			rs.Store("late", 42, nil, time.Minute)

			So(await(t, a).Value, ShouldEqual, 42)
			So(await(t, b).Value, ShouldEqual, 42)
		})

		Convey("Expired values should be swept", func() {
			rs.Store("short", 1, nil, time.Millisecond)
			rs.Store("forever", 2, nil, 0)

			rs.mu.Lock()
			rs.cleanupExpiredValues(time.Now().Add(time.Second))
			_, short := rs.values["short"]
			_, forever := rs.values["forever"]
			rs.mu.Unlock()

			So(short, ShouldBeFalse)
			So(forever, ShouldBeTrue)
		})

		Convey("Forget should drop a value", func() {
			rs.Store("gone", 1, nil, time.Minute)
			rs.Forget("gone")

			rs.mu.Lock()
			_, ok := rs.values["gone"]
			rs.mu.Unlock()
			So(ok, ShouldBeFalse)
		})
	})
}
