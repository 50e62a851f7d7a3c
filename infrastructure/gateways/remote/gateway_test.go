package remote_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/services"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/gateways/remote"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/adapters"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/memory"
	"github.com/KiraKC/Spectacle-Hypertext/interfaces/http/rest"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemote(t *testing.T) *remote.Gateway {
	t.Helper()
	collection, err := memory.NewCollection()
	require.NoError(t, err)
	store := services.NewAnchorGateway(adapters.NewAnchorStore(collection, nil), nil)

	server := httptest.NewServer(rest.NewRouter(store, nil, rest.RouterConfig{}).Setup())
	t.Cleanup(server.Close)

	g, err := remote.NewGateway(server.URL)
	require.NoError(t, err)
	return g
}

func TestGateway_EndToEnd(t *testing.T) {
	g := newRemote(t)
	ctx := context.Background()
	anchor, err := entities.NewMediaAnchor("a1", "n1", 42)
	require.NoError(t, err)

	created := g.CreateAnchor(ctx, anchor)
	require.True(t, created.Success, created.Message)
	assert.True(t, anchor.Equals(created.Payload))

	got := g.GetAnchor(ctx, "a1")
	require.True(t, got.Success, got.Message)
	assert.True(t, anchor.Equals(got.Payload))

	assert.True(t, g.DeleteAnchor(ctx, "a1").Success)
	assert.False(t, g.GetAnchor(ctx, "a1").Success)
}

func TestGateway_Properties(t *testing.T) {
	g := newRemote(t)
	ctx := context.Background()

	x, _ := entities.NewTextAnchor("x", "n1", 0, 3, "text")
	z, _ := entities.NewTextAnchor("z", "n2", 1, 1, "t")
	require.True(t, g.CreateAnchor(ctx, x).Success)
	require.True(t, g.CreateAnchor(ctx, z).Success)

	t.Run("create uniqueness", func(t *testing.T) {
		other, _ := entities.NewMediaAnchor("x", "n9", 1)
		resp := g.CreateAnchor(ctx, other)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Message, "x")
		assert.Nil(t, resp.Payload)

		got := g.GetAnchor(ctx, "x")
		require.True(t, got.Success)
		assert.True(t, x.Equals(got.Payload))
	})

	t.Run("bulk partial result", func(t *testing.T) {
		resp := g.GetAnchors(ctx, []string{"x", "y", "z"})
		require.True(t, resp.Success, resp.Message)
		assert.Len(t, resp.Payload, 2)
		assert.True(t, z.Equals(resp.Payload["z"]))
	})

	t.Run("bulk all missing", func(t *testing.T) {
		resp := g.GetAnchors(ctx, []string{"p", "q"})
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Payload)
	})

	t.Run("by node", func(t *testing.T) {
		resp := g.GetAnchorsByNode(ctx, "n1")
		require.True(t, resp.Success)
		assert.Contains(t, resp.Payload, "x")
	})

	t.Run("bulk delete superset", func(t *testing.T) {
		assert.True(t, g.DeleteAnchors(ctx, []string{"x", "y", "z"}).Success)
		for _, id := range []string{"x", "y", "z"} {
			assert.False(t, g.GetAnchor(ctx, id).Success)
		}
		assert.True(t, g.DeleteAnchorsByNode(ctx, "n1").Success)
	})
}

func TestGateway_LocalValidation(t *testing.T) {
	g := newRemote(t)
	ctx := context.Background()

	assert.Equal(t, "input is null", g.CreateAnchor(ctx, nil).Message)
	assert.Equal(t, "input is null", g.GetAnchors(ctx, nil).Message)
	assert.False(t, g.GetAnchors(ctx, []string{}).Success)
	assert.True(t, g.DeleteAnchors(ctx, []string{}).Success)

	resp := g.GetAnchors(ctx, []string{"a,b"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "must not contain")
}

func TestGateway_EscapesIDs(t *testing.T) {
	g := newRemote(t)
	ctx := context.Background()
	anchor, _ := entities.NewMediaAnchor("folder/a b?", "n1", 3)

	require.True(t, g.CreateAnchor(ctx, anchor).Success)
	assert.True(t, g.GetAnchor(ctx, "folder/a b?").Success)
	assert.True(t, g.GetAnchors(ctx, []string{"folder/a b?", "other"}).Success)
}

func TestGateway_PercentIDsStayDistinct(t *testing.T) {
	g := newRemote(t)
	ctx := context.Background()
	encoded, _ := entities.NewMediaAnchor("x%41", "n1", 1)
	plain, _ := entities.NewMediaAnchor("xA", "n2", 2)
	require.True(t, g.CreateAnchor(ctx, encoded).Success)
	require.True(t, g.CreateAnchor(ctx, plain).Success)

	got := g.GetAnchor(ctx, "x%41")
	require.True(t, got.Success, got.Message)
	assert.Equal(t, "x%41", got.Payload.AnchorID)
	assert.Equal(t, "n1", got.Payload.NodeID)

	many := g.GetAnchors(ctx, []string{"x%41"})
	require.True(t, many.Success, many.Message)
	assert.Len(t, many.Payload, 1)
	assert.Contains(t, many.Payload, "x%41")

	require.True(t, g.DeleteAnchor(ctx, "x%41").Success)
	assert.False(t, g.GetAnchor(ctx, "x%41").Success)

	kept := g.GetAnchor(ctx, "xA")
	require.True(t, kept.Success, kept.Message)
	assert.Equal(t, "n2", kept.Payload.NodeID)
}

func TestGateway_TransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	g, err := remote.NewGateway(url, remote.WithTimeout(time.Second))
	require.NoError(t, err)
	ctx := context.Background()

	anchor, _ := entities.NewMediaAnchor("a1", "n1", 1)
	created := g.CreateAnchor(ctx, anchor)
	assert.False(t, created.Success)
	assert.Contains(t, created.Message, "Failed to create anchor. ")
	assert.Greater(t, len(created.Message), len("Failed to create anchor. "))
	assert.Contains(t, created.Message, "NETWORK: POST ")

	assert.Equal(t, "Failed to call getAnchor endpoint.", g.GetAnchor(ctx, "a1").Message)
	assert.Equal(t, "Failed to call getAnchor endpoint.", g.GetAnchors(ctx, []string{"a1"}).Message)
	assert.Equal(t, "Failed to call deleteAnchor endpoint.", g.DeleteAnchor(ctx, "a1").Message)
	assert.Equal(t, "Failed to call deleteAnchor endpoint.", g.DeleteAnchors(ctx, []string{"a1"}).Message)
}

func TestGateway_NonEnvelopeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	t.Cleanup(server.Close)

	g, err := remote.NewGateway(server.URL)
	require.NoError(t, err)

	resp := g.GetAnchor(context.Background(), "a1")
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to call getAnchor endpoint.", resp.Message)

	anchor, _ := entities.NewMediaAnchor("a1", "n1", 1)
	created := g.CreateAnchor(context.Background(), anchor)
	assert.False(t, created.Success)
	assert.Contains(t, created.Message, "NETWORK: unexpected response (status 502)")
}

func TestGateway_RequestShape(t *testing.T) {
	var method, path, body atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		method.Store(r.Method)
		path.Store(r.URL.EscapedPath())
		body.Store(string(b))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"payload":{}}`)
	}))
	t.Cleanup(server.Close)

	g, err := remote.NewGateway(server.URL+"/", remote.WithResourcePath("anchors/"))
	require.NoError(t, err)
	ctx := context.Background()

	anchor, _ := entities.NewMediaAnchor("a1", "n1", 2.5)
	g.CreateAnchor(ctx, anchor)
	assert.Equal(t, http.MethodPost, method.Load())
	assert.Equal(t, "/anchors/", path.Load())
	assert.JSONEq(t, `{"data":{"anchorId":"a1","nodeId":"n1","mediaTimeStamp":2.5}}`, body.Load().(string))

	require.True(t, g.DeleteAnchors(ctx, []string{"a1", "a2", "a1"}).Success)
	assert.Equal(t, http.MethodDelete, method.Load())
	assert.Equal(t, "/anchors/list/a1,a2", path.Load())
}

func TestGateway_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"success":false,"message":"boom"}`)
	}))
	t.Cleanup(server.Close)

	config := remote.DefaultBreakerConfig("test")
	config.MinRequests = 2
	config.FailureThreshold = 0.5
	g, err := remote.NewGateway(server.URL, remote.WithBreaker(config))
	require.NoError(t, err)
	ctx := context.Background()

	first := g.GetAnchor(ctx, "a1")
	assert.False(t, first.Success)
	assert.Equal(t, "boom", first.Message)
	g.GetAnchor(ctx, "a1")
	assert.Equal(t, gobreaker.StateOpen, g.BreakerState())

	resp := g.GetAnchor(ctx, "a1")
	assert.Equal(t, "Failed to call getAnchor endpoint.", resp.Message)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNewGatewayRejectsBadURL(t *testing.T) {
	_, err := remote.NewGateway("localhost:8080")
	assert.Error(t, err)

	_, err = remote.NewGateway("://bad")
	assert.Error(t, err)
}
