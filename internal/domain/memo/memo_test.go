package memo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/perfectlap/internal/domain/memo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemo(t *testing.T) {
	Convey("Given a new memo", t, func() {
		ctx := context.Background()

		Convey("When created with default options", func() {
			m := memo.New[string]()

			Convey("Then it should be empty", func() {
				So(m.Len(), ShouldEqual, int64(0))
				_, ok := m.Get(ctx, "2024|monaco grand prix|Q")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When values are stored", func() {
			m := memo.New[int](memo.WithMaxSize(10))
			So(m.Put(ctx, "a", 1), ShouldBeFalse)
			So(m.Put(ctx, "b", 2), ShouldBeFalse)

			Convey("Then they should be returned", func() {
				v, ok := m.Get(ctx, "b")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
				So(m.Len(), ShouldEqual, int64(2))
			})

			Convey("And replacing a value should not grow the memo", func() {
				m.Put(ctx, "a", 10)
				v, _ := m.Get(ctx, "a")
				So(v, ShouldEqual, 10)
				So(m.Len(), ShouldEqual, int64(2))
			})

			Convey("And forgetting a key should remove only that key", func() {
				m.Forget(ctx, "a")
				_, ok := m.Get(ctx, "a")
				So(ok, ShouldBeFalse)
				_, ok = m.Get(ctx, "b")
				So(ok, ShouldBeTrue)
				So(m.Len(), ShouldEqual, int64(1))
			})

			Convey("And forgetting an unknown key should be a no-op", func() {
				m.Forget(ctx, "missing")
				So(m.Len(), ShouldEqual, int64(2))
			})

			Convey("And Reset should drop everything", func() {
				m.Reset()
				So(m.Len(), ShouldEqual, int64(0))
				_, ok := m.Get(ctx, "a")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a bounded memo overflows", func() {
			m := memo.New[int](memo.WithMaxSize(3))
			for i := range 3 {
				m.Put(ctx, fmt.Sprintf("k%d", i), i)
			}
			evicted := m.Put(ctx, "k3", 3)

			Convey("Then the oldest entry should be evicted", func() {
				So(evicted, ShouldBeTrue)
				So(m.Len(), ShouldEqual, int64(3))
				_, ok := m.Get(ctx, "k0")
				So(ok, ShouldBeFalse)
				for _, k := range []string{"k1", "k2", "k3"} {
					_, ok := m.Get(ctx, k)
					So(ok, ShouldBeTrue)
				}
			})
		})

		Convey("When a memo of size one is reused", func() {
			m := memo.New[int](memo.WithMaxSize(1))
			m.Put(ctx, "a", 1)
			m.Put(ctx, "b", 2)

			Convey("Then only the newest entry should remain", func() {
				_, ok := m.Get(ctx, "a")
				So(ok, ShouldBeFalse)
				v, ok := m.Get(ctx, "b")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 2)
			})
		})

		Convey("When the memo is unbounded", func() {
			m := memo.New[int](memo.WithMaxSize(0))
			for i := range 100 {
				m.Put(ctx, fmt.Sprintf("k%d", i), i)
			}

			Convey("Then nothing should be evicted", func() {
				So(m.Len(), ShouldEqual, int64(100))
				_, ok := m.Get(ctx, "k0")
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestMemoConcurrency(t *testing.T) {
	Convey("Given a bounded memo shared by many goroutines", t, func() {
		ctx := context.Background()
		m := memo.New[int](memo.WithMaxSize(8))

		var wg sync.WaitGroup
		for g := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 50 {
					key := fmt.Sprintf("k%d", (g+i)%20)
					m.Put(ctx, key, i)
					m.Get(ctx, key)
					if i%7 == 0 {
						m.Forget(ctx, key)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then the bound should hold", func() {
			So(m.Len(), ShouldBeLessThanOrEqualTo, int64(8))
		})
	})
}
