package middleware

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"golang.org/x/text/language"

	"github.com/frahmantamala/licensestore/internal"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.Vietnamese, language.English})

type statusMessages struct {
	unauthorized string
	forbidden    string
}

var localized = map[language.Base]statusMessages{
	mustBase(language.Vietnamese): {
		unauthorized: "Bạn chưa đăng nhập hoặc phiên đăng nhập đã hết hạn.",
		forbidden:    "Bạn không có quyền thực hiện thao tác này.",
	},
	mustBase(language.English): {
		unauthorized: "You are not signed in or your session has expired.",
		forbidden:    "You do not have permission to perform this action.",
	},
}

func mustBase(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// Locale picks vi (default) or en from Accept-Language.
func Locale(r *http.Request) language.Base {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return mustBase(language.Vietnamese)
	}
	tag, _, _ := localeMatcher.Match(tags...)
	base, _ := tag.Base()
	if _, ok := localized[base]; !ok {
		return mustBase(language.Vietnamese)
	}
	return base
}

// LocalizedAuthErrors rewrites 401 and 403 responses that carry no body into
// the JSON error envelope, in the caller's language.
func LocalizedAuthErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lw := &localeWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		lw.finish(r)
	})
}

type localeWriter struct {
	http.ResponseWriter
	pending  int
	wrote    bool
	hijacked bool
}

func (lw *localeWriter) WriteHeader(code int) {
	if lw.wrote || lw.pending != 0 {
		return
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		lw.pending = code
		return
	}
	lw.wrote = true
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *localeWriter) Write(b []byte) (int, error) {
	if lw.pending != 0 && !lw.wrote {
		lw.wrote = true
		lw.ResponseWriter.WriteHeader(lw.pending)
	}
	lw.wrote = true
	return lw.ResponseWriter.Write(b)
}

func (lw *localeWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lw *localeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	lw.hijacked = true
	return hj.Hijack()
}

func (lw *localeWriter) finish(r *http.Request) {
	if lw.hijacked || lw.wrote || lw.pending == 0 {
		return
	}

	msgs := localized[Locale(r)]
	var appErr *internal.AppError
	if lw.pending == http.StatusUnauthorized {
		appErr = internal.NewUnauthorizedError(msgs.unauthorized, internal.ErrCodeInvalidToken)
	} else {
		appErr = internal.NewForbiddenError(msgs.forbidden, internal.ErrCodeAccessDenied)
	}

	lw.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	lw.ResponseWriter.WriteHeader(lw.pending)
	_ = json.NewEncoder(lw.ResponseWriter).Encode(internal.Response{Error: appErr})
}
