package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContextDefaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContextExplicit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=40&offset=80"))
	if p.Limit != 40 || p.Offset != 80 {
		t.Errorf("expected 40/80, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContextCapsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContextNegativeValues(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=-1&offset=-5"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit for negative input, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponseHasMore(t *testing.T) {
	resp := NewResponse(nil, 50, 20, 0)
	if !resp.HasMore {
		t.Error("expected has_more=true for 0+20 < 50")
	}
	resp = NewResponse(nil, 50, 20, 40)
	if resp.HasMore {
		t.Error("expected has_more=false for 40+20 >= 50")
	}
}

func TestOffsetNavigation(t *testing.T) {
	p := Params{Limit: 20, Offset: 20}
	if p.NextOffset() != 40 {
		t.Errorf("expected next offset 40, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset 0, got %d", p.PreviousOffset())
	}
	p = Params{Limit: 20, Offset: 10}
	if p.PreviousOffset() != 0 {
		t.Errorf("previous offset should floor at 0, got %d", p.PreviousOffset())
	}
}
