package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/inventory-sync-manager/internal/api/dto"
	"github.com/eshaffer321/inventory-sync-manager/internal/api/handlers"
)

func TestPlatformsHandler_Test(t *testing.T) {
	e := newEnv(t, false)
	handler := handlers.NewPlatformsHandler(e.ctrl, testLogger())

	test := func(id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/platforms/"+id+"/test", nil), "id", id)
		handler.Test(rec, req)
		return rec
	}

	t.Run("configured platform is ok", func(t *testing.T) {
		rec := test("loja-integrada")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, dto.ConnectionTestResponse{
			Platform: "loja-integrada",
			OK:       true,
			Message:  "connection ok",
		}, decode[dto.ConnectionTestResponse](t, rec))
	})

	t.Run("missing credentials report failure", func(t *testing.T) {
		rec := test("woocommerce")
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode[dto.ConnectionTestResponse](t, rec)
		assert.False(t, resp.OK)
		assert.Equal(t, dto.ErrCodeConnection, resp.Code)
		assert.Contains(t, resp.Message, "credentials")
	})

	for _, id := range []string{"shopify", "all-platforms"} {
		t.Run("unknown "+id, func(t *testing.T) {
			rec := test(id)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, dto.ErrCodeNotFound, decode[dto.APIError](t, rec).Code)
		})
	}
}
