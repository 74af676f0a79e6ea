package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Instruction outcomes are counted per result", func(t *testing.T) {
		before := testutil.ToFloat64(instructionResults.WithLabelValues("claim_tokens", "15"))
		CountInstruction("claim_tokens", "15")
		CountInstruction("claim_tokens", "ok")
		assert.Equal(t, before+1, testutil.ToFloat64(instructionResults.WithLabelValues("claim_tokens", "15")))
	})

	t.Run("Requests are labelled by route template", func(t *testing.T) {
		r := gin.New()
		r.Use(GinMiddleware())
		r.GET("/receipts/:mint", func(c *gin.Context) { c.Status(http.StatusOK) })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/receipts/abc", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/abc", nil))

		families, err := prometheus.DefaultGatherer.Gather()
		require.NoError(t, err)
		var routes []string
		for _, mf := range families {
			if mf.GetName() != "http_request_duration_seconds" {
				continue
			}
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "route" {
						routes = append(routes, lp.GetValue())
					}
				}
			}
		}
		assert.ElementsMatch(t, []string{"/receipts/:mint", unmatchedRoute}, routes)
	})
}
