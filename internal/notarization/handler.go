package notarization

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/JaimeStill/notary/pkg/handlers"
	"github.com/JaimeStill/notary/pkg/middleware"
	"github.com/JaimeStill/notary/pkg/ratelimit"
	"github.com/JaimeStill/notary/pkg/routes"
	"github.com/JaimeStill/notary/pkg/signature"
)

// Response is the uniform wire envelope for both outcomes.
type Response struct {
	OK          bool   `json:"ok"`
	Code        Code   `json:"code"`
	IssueURL    string `json:"issue_url,omitempty"`
	IssueNumber int64  `json:"issue_number,omitempty"`
	Hash        string `json:"hash,omitempty"`
	Msg         string `json:"msg,omitempty"`
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	sys        System
	trustProxy bool
}

// NewHandler creates a Handler. With trustProxy set, the client address is
// taken from the first X-Forwarded-For hop.
func NewHandler(sys System, trustProxy bool) *Handler {
	return &Handler{
		sys:        sys,
		trustProxy: trustProxy,
	}
}

// Routes returns the route group definition for the notarize endpoint.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/picc",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/notarize", Handler: h.Notarize},
		},
	}
}

// Notarize runs one submission and writes the envelope.
func (h *Handler) Notarize(w http.ResponseWriter, r *http.Request) {
	res, err := h.sys.Submit(r.Context(), Submission{
		Body:        r.Body,
		ContentType: r.Header.Get("Content-Type"),
		Signature:   r.Header.Get(signature.Header),
		Client:      ClientKey(r, h.trustProxy),
		RequestID:   middleware.RequestIDFrom(r.Context()),
	})
	if err != nil {
		e := AsError(err)
		if e.Code == CodeRateLimit {
			retryAfter := ratelimit.Decision{RetryAfter: e.RetryAfter}.RetryAfterSeconds()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		handlers.RespondJSON(w, e.Status, Response{
			OK:   false,
			Code: e.Code,
			Msg:  e.Msg,
		})
		return
	}

	handlers.RespondJSON(w, res.Status(), Response{
		OK:          true,
		Code:        res.Code,
		IssueURL:    res.Record.URL,
		IssueNumber: res.Record.Number,
		Hash:        res.Hash.String(),
	})
}

// ClientKey identifies the caller for rate limiting.
func ClientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
