package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nftclaim/internal/app/api/config"
	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

func Test_New(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key := pubkey.NewRandom()

	t.Run("Genesis accounts are served from the memory ledger", func(t *testing.T) {
		raw, err := json.Marshal([]ledger.GenesisAccount{
			{Pubkey: key, Account: ledger.Account{Owner: pubkey.Zero, Lamports: 42}},
		})
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "genesis.json")
		require.NoError(t, os.WriteFile(path, raw, 0o600))

		srv, err := New(context.Background(), config.Config{
			Port:          "0",
			LedgerBackend: config.LedgerMemory,
			GenesisPath:   path,
		}, zap.NewNop())
		require.NoError(t, err)
		defer srv.Close()

		w := httptest.NewRecorder()
		srv.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/"+key.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"lamports":42`)
	})

	t.Run("Unknown ledger backends are rejected", func(t *testing.T) {
		_, err := New(context.Background(), config.Config{LedgerBackend: "etcd"}, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("Missing genesis files fail startup", func(t *testing.T) {
		_, err := New(context.Background(), config.Config{GenesisPath: filepath.Join(t.TempDir(), "missing.json")}, zap.NewNop())
		assert.Error(t, err)
	})
}
