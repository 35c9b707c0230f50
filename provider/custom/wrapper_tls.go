// Package custom provides a bridge between the Go core and Lua-based site scripts.
//
// registerTLSClient injects the "http_tls" global module so scripts reach
// sites behind anti-bot challenges through the Chrome-fingerprint transport
// instead of Lua's plain http library.
//
// Lua API:
//
//	http_tls.get(url)              → returns body string
//	http_tls.get(url, headers_tbl) → returns body string with custom headers
//	http_tls.request(options_tbl)  → returns {status, body}
package custom

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ovod-cli/ovod/hook"
	"github.com/ovod-cli/ovod/network"
)

const scriptHTTPTimeout = 30 * time.Second

// spoofed is the shared fingerprinted client for every script.
var (
	spoofed     *network.Client
	spoofedOnce sync.Once
)

func spoofedClient() *network.Client {
	spoofedOnce.Do(func() {
		spoofed = network.New(network.Options{
			Timeout:  scriptHTTPTimeout,
			TLSSpoof: true,
		}, nil, nil)
	})
	return spoofed
}

// registerTLSClient injects the "http_tls" module into the Lua state. plain
// is the application's hook-processed client; scripts choose the spoofed
// transport explicitly per request with tls=true.
func registerTLSClient(L *lua.LState, plain *network.Client) {
	mod := L.NewTable()
	L.SetField(mod, "get", L.NewFunction(httpTLSGet))
	L.SetField(mod, "request", L.NewFunction(func(L *lua.LState) int {
		return httpTLSRequest(L, plain)
	}))
	L.SetGlobal("http_tls", mod)
}

// httpTLSGet implements http_tls.get(url [, headers]) → body string.
func httpTLSGet(L *lua.LState) int {
	url := L.CheckString(1)
	headersTable := L.OptTable(2, nil)

	headers := make(map[string]string)
	if headersTable != nil {
		headersTable.ForEach(func(k, v lua.LValue) {
			headers[k.String()] = v.String()
		})
	}

	resp, err := fetch(L, spoofedClient(), http.MethodGet, url, headers, nil)
	if err != nil {
		L.RaiseError("http_tls.get failed: %s", err.Error())
		return 0
	}

	L.Push(lua.LString(resp.Body))
	return 1
}

// httpTLSRequest implements http_tls.request(options) → {status, body}.
func httpTLSRequest(L *lua.LState, plain *network.Client) int {
	opts := L.CheckTable(1)

	method := getStringOr(opts, "method", http.MethodGet)
	url := getStringOr(opts, "url", "")
	body := getStringOr(opts, "body", "")
	if url == "" {
		L.RaiseError("http_tls.request: url is required")
		return 0
	}

	client := spoofedClient()
	if !lua.LVAsBool(opts.RawGetString("tls")) && plain != nil {
		client = plain
	}

	headers := make(map[string]string)
	if tbl, ok := opts.RawGetString("headers").(*lua.LTable); ok {
		tbl.ForEach(func(k, v lua.LValue) {
			headers[k.String()] = v.String()
		})
	}

	resp, err := fetch(L, client, method, url, headers, []byte(body))
	if err != nil && !errors.Is(err, network.ErrStatus) {
		L.RaiseError("http_tls.request failed: %s", err.Error())
		return 0
	}

	result := L.NewTable()
	L.SetField(result, "status", lua.LNumber(resp.StatusCode))
	L.SetField(result, "body", lua.LString(resp.Body))
	L.Push(result)
	return 1
}

func fetch(L *lua.LState, client *network.Client, method, url string, headers map[string]string, body []byte) (hook.Response, error) {
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return client.Do(ctx, hook.Request{
		Method:  method,
		URL:     url,
		Headers: headers,
		Body:    body,
		Meta:    map[string]string{},
	})
}

func getStringOr(tbl *lua.LTable, key, def string) string {
	val := tbl.RawGetString(key)
	if val == lua.LNil {
		return def
	}
	return val.String()
}
