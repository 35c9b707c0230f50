package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ovod-cli/ovod/hook"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	Convey("Given a server that succeeds", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		client := New(Options{Timeout: 5 * time.Second}, nil, nil)

		Convey("When fetching", func() {
			resp, err := client.Get(context.Background(), srv.URL, nil)

			Convey("Then the response is returned once", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, 200)
				So(string(resp.Body), ShouldEqual, `{"ok":true}`)
				So(calls.Load(), ShouldEqual, 1)
			})

			Convey("And the content type is stripped of parameters", func() {
				So(resp.ContentType, ShouldEqual, "application/json")
			})
		})
	})

	Convey("Given a server that fails twice before succeeding", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("flaky"))
				return
			}
			_, _ = w.Write([]byte("finally"))
		}))
		defer srv.Close()

		client := New(Options{
			Timeout:    5 * time.Second,
			Retries:    3,
			RetryDelay: time.Millisecond,
		}, nil, nil)

		Convey("When fetching", func() {
			resp, err := client.Get(context.Background(), srv.URL, nil)

			Convey("Then retries recover the request", func() {
				So(err, ShouldBeNil)
				So(string(resp.Body), ShouldEqual, "finally")
				So(calls.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a server that always returns 404", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		client := New(Options{
			Timeout:    5 * time.Second,
			Retries:    3,
			RetryDelay: time.Millisecond,
		}, nil, hook.NewResponseChain(hook.StatusGate{}))

		Convey("When fetching", func() {
			resp, err := client.Get(context.Background(), srv.URL, nil)

			Convey("Then the status is not retried", func() {
				So(calls.Load(), ShouldEqual, 1)
			})

			Convey("And the error wraps ErrStatus with a normalized body", func() {
				So(err, ShouldWrap, ErrStatus)
				So(string(resp.Body), ShouldContainSubstring, "not found")
			})
		})
	})

	Convey("Given a caller-supplied header and a hook chain", t, func() {
		var seen atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen.Store(r.Header.Get("Accept"))
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		client := New(Options{Timeout: 5 * time.Second},
			hook.NewRequestChain(hook.DefaultHeaders{}), nil)

		Convey("When the caller sets Accept explicitly", func() {
			_, err := client.Get(context.Background(), srv.URL, map[string]string{"Accept": "application/json"})

			Convey("Then the hook does not override it", func() {
				So(err, ShouldBeNil)
				So(seen.Load(), ShouldEqual, "application/json")
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(time.Second)
		}))
		defer srv.Close()

		client := New(Options{Timeout: 5 * time.Second, Retries: 2}, nil, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		Convey("When fetching", func() {
			start := time.Now()
			_, err := client.Get(ctx, srv.URL, nil)

			Convey("Then the call stops without burning retries", func() {
				So(err, ShouldNotBeNil)
				So(time.Since(start), ShouldBeLessThan, time.Second)
			})
		})
	})
}
