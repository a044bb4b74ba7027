package gojart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// goja ships ECMAScript only. The Firebase SDK additionally expects Blob
// and fetch; both are provided here on top of Go helpers.

const blobShim = `(function (g) {
	if (typeof g.Blob === "function") { return; }
	function toBytes(part) {
		if (part instanceof Uint8Array) { return part; }
		if (part instanceof ArrayBuffer) { return new Uint8Array(part); }
		if (ArrayBuffer.isView(part)) { return new Uint8Array(part.buffer, part.byteOffset, part.byteLength); }
		if (part instanceof g.Blob) { return part._bytes; }
		return __goEncodeUTF8(String(part));
	}
	class Blob {
		constructor(parts, options) {
			const chunks = (parts || []).map(toBytes);
			let size = 0;
			for (const c of chunks) { size += c.length; }
			const bytes = new Uint8Array(size);
			let off = 0;
			for (const c of chunks) { bytes.set(c, off); off += c.length; }
			this._bytes = bytes;
			this._type = options && options.type ? String(options.type).toLowerCase() : "";
		}
		get size() { return this._bytes.length; }
		get type() { return this._type; }
		arrayBuffer() { return Promise.resolve(this._bytes.slice().buffer); }
		text() { return Promise.resolve(__goDecodeUTF8(this._bytes)); }
		slice(start, end, type) { return new Blob([this._bytes.slice(start, end)], { type: type || "" }); }
	}
	g.Blob = Blob;
})(globalThis);`

const fetchShim = `(function (g) {
	class Headers {
		constructor(init) {
			this._h = {};
			if (init instanceof Headers) { init = init._h; }
			if (init) { for (const k of Object.keys(init)) { this._h[k.toLowerCase()] = String(init[k]); } }
		}
		get(name) { const v = this._h[String(name).toLowerCase()]; return v === undefined ? null : v; }
		has(name) { return String(name).toLowerCase() in this._h; }
		set(name, value) { this._h[String(name).toLowerCase()] = String(value); }
		forEach(fn) { for (const k of Object.keys(this._h)) { fn(this._h[k], k, this); } }
	}
	function toBody(body) {
		if (body === undefined || body === null) { return null; }
		if (body instanceof Uint8Array) { return body; }
		if (body instanceof ArrayBuffer) { return new Uint8Array(body); }
		if (body instanceof g.Blob) { return body._bytes; }
		return __goEncodeUTF8(String(body));
	}
	g.Headers = g.Headers || Headers;
	g.fetch = function (input, init) {
		init = init || {};
		const url = typeof input === "string" ? input : String((input && input.url) || input);
		const headers = new Headers(init.headers);
		return new Promise(function (resolve, reject) {
			__goFetch(String(init.method || "GET").toUpperCase(), url, headers._h, toBody(init.body), function (res) {
				const bytes = res.body;
				resolve({
					ok: res.status >= 200 && res.status < 300,
					status: res.status,
					statusText: res.statusText,
					url: res.url,
					headers: new Headers(res.headers),
					arrayBuffer: function () { return Promise.resolve(bytes.slice().buffer); },
					blob: function () { return Promise.resolve(new g.Blob([bytes], { type: res.headers["content-type"] || "" })); },
					text: function () { return Promise.resolve(__goDecodeUTF8(bytes)); },
					json: function () { return Promise.resolve(JSON.parse(__goDecodeUTF8(bytes))); }
				});
			}, function (msg) {
				reject(new TypeError("fetch failed: " + msg));
			});
		});
	};
})(globalThis);`

func (r *Runtime) installShims(vm *goja.Runtime) error {
	if err := vm.Set("__goEncodeUTF8", func(s string) goja.Value {
		return r.newUint8Array([]byte(s))
	}); err != nil {
		return err
	}
	if err := vm.Set("__goDecodeUTF8", func(call goja.FunctionCall) goja.Value {
		b := r.bytesArg(call.Argument(0))
		if !utf8.Valid(b) {
			b = bytes.ToValidUTF8(b, []byte("�"))
		}
		return vm.ToValue(string(b))
	}); err != nil {
		return err
	}
	if _, err := vm.RunScript("gojart:blob", blobShim); err != nil {
		return fmt.Errorf("failed to install Blob shim: %w", err)
	}

	if !r.config.EnableFetch {
		return nil
	}
	if err := vm.Set("__goFetch", r.goFetch); err != nil {
		return err
	}
	if _, err := vm.RunScript("gojart:fetch", fetchShim); err != nil {
		return fmt.Errorf("failed to install fetch shim: %w", err)
	}
	return nil
}

type fetchRequest struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
	onOK    goja.Callable
	onErr   goja.Callable
}

// goFetch is __goFetch(method, url, headers, body, onOK, onErr).
func (r *Runtime) goFetch(call goja.FunctionCall) goja.Value {
	req := &fetchRequest{
		method:  call.Argument(0).String(),
		url:     call.Argument(1).String(),
		headers: make(map[string]string),
		body:    r.bytesArg(call.Argument(3)),
	}
	if obj, ok := call.Argument(2).(*goja.Object); ok {
		for _, k := range obj.Keys() {
			req.headers[k] = obj.Get(k).String()
		}
	}
	var ok bool
	if req.onOK, ok = goja.AssertFunction(call.Argument(4)); !ok {
		panic(r.vm.NewTypeError("__goFetch: resolve callback is not a function"))
	}
	if req.onErr, ok = goja.AssertFunction(call.Argument(5)); !ok {
		panic(r.vm.NewTypeError("__goFetch: reject callback is not a function"))
	}

	go r.doFetch(req)
	return goja.Undefined()
}

func (r *Runtime) doFetch(req *fetchRequest) {
	ctx := r.baseCtx
	if r.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.FetchTimeout)
		defer cancel()
	}

	client := r.config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	startTime := time.Now()
	status, statusText, headers, data, err := func() (int, string, map[string]string, []byte, error) {
		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		hreq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
		if err != nil {
			return 0, "", nil, nil, err
		}
		for k, v := range req.headers {
			hreq.Header.Set(k, v)
		}
		resp, err := client.Do(hreq)
		if err != nil {
			return 0, "", nil, nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, "", nil, nil, err
		}
		headers := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			headers[http.CanonicalHeaderKey(k)] = resp.Header.Get(k)
		}
		return resp.StatusCode, http.StatusText(resp.StatusCode), headers, data, nil
	}()

	r.logger.Debug("fetch completed",
		zap.String("method", req.method),
		zap.String("url", req.url),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(startTime)),
		zap.Error(err),
	)

	if r.IsClosed() {
		return
	}
	r.loop.RunOnLoop(func(vm *goja.Runtime) {
		perr := r.protect(func() error {
			if err != nil {
				_, cerr := req.onErr(goja.Undefined(), vm.ToValue(err.Error()))
				return cerr
			}
			res := vm.NewObject()
			hdrs := vm.NewObject()
			for k, v := range headers {
				if err := hdrs.Set(strings.ToLower(k), v); err != nil {
					return err
				}
			}
			for k, v := range map[string]any{
				"status":     status,
				"statusText": statusText,
				"url":        req.url,
				"headers":    hdrs,
				"body":       r.newUint8Array(data),
			} {
				if err := res.Set(k, v); err != nil {
					return err
				}
			}
			_, cerr := req.onOK(goja.Undefined(), res)
			return cerr
		})
		if perr != nil {
			r.logger.Warn("fetch callback failed", zap.String("url", req.url), zap.Error(perr))
		}
	})
}
