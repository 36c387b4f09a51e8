package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/application/services"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/health"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/middleware"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/memory"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/multicache"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

const adminSecret = "integration-secret"

// IntegrationTestSuite runs the full read path in process: a fake Vista upstream, the Vista
// client and normalizer, both cache tiers (Redis via miniredis) and the HTTP server.
type IntegrationTestSuite struct {
	suite.Suite
	redis        *miniredis.Miniredis
	remote       *redis.RedisCache
	orchestrator *multicache.Orchestrator
	vista        *httptest.Server
	vistaHits    atomic.Int32
	api          *httptest.Server
	client       *http.Client
}

func (s *IntegrationTestSuite) SetupTest() {
	s.vistaHits.Store(0)
	s.vista = httptest.NewServer(http.HandlerFunc(s.fakeVista))

	s.redis = miniredis.NewMiniRedis()
	s.Require().NoError(s.redis.Start())
	s.remote = redis.NewRedisCache(config.RedisConfig{
		URL:         "redis://" + s.redis.Addr(),
		DialTimeout: 200 * time.Millisecond,
		OpTimeout:   500 * time.Millisecond,
	}, nil)

	s.orchestrator = multicache.New(memory.NewCache(), s.remote, multicache.Options{})

	client := vista.NewClient(
		config.VistaConfig{BaseURL: s.vista.URL, APIKey: "key"},
		upstream.Config{Name: vista.ProviderName, Timeout: time.Second, RequestsPerSec: 1000, Burst: 100, BreakerFailures: 5, BreakerOpenAfter: time.Minute},
		nil, nil,
	)
	registry := providers.NewRegistry(vista.NewNormalizer(nil, nil))
	svc := services.NewPropertyService(s.orchestrator, []ports.PropertyProvider{client}, registry, services.PropertyServiceConfig{
		ListTTL:   time.Minute,
		DetailTTL: time.Minute,
	}, nil, nil)

	srv := httpserver.NewServer(&httpserver.ServerConfig{AllowedOrigins: []string{"*"}}, adminSecret, nil, httpserver.ServerDeps{
		PropertyService: svc,
		HealthCheckers: []ports.HealthChecker{
			health.NewRedisHealthChecker(s.remote),
			health.NewBreakerHealthChecker(client.Upstream()),
		},
	})
	s.api = httptest.NewServer(srv.Echo())
	s.client = &http.Client{Timeout: 5 * time.Second}
}

func (s *IntegrationTestSuite) TearDownTest() {
	s.api.Close()
	s.orchestrator.WaitForWrites()
	_ = s.remote.Close()
	s.redis.Close()
	s.vista.Close()
}

func (s *IntegrationTestSuite) fakeVista(w http.ResponseWriter, r *http.Request) {
	s.vistaHits.Add(1)
	switch r.URL.Path {
	case "/imoveis/listar":
		_, _ = w.Write([]byte(`{
			"AP1":{"Codigo":"AP1","Categoria":"Apartamento","Cidade":"Itajaí","Bairro":"Centro","ValorVenda":"850000"},
			"CA2":{"Codigo":"CA2","Categoria":"Casa","Cidade":"Itajaí","Bairro":"Fazenda","ValorVenda":"1200000"},
			"total":"2","paginas":1,"pagina":1,"quantidade":12}`))
	case "/imoveis/detalhes":
		if r.URL.Query().Get("imovel") == "AP1" {
			_, _ = w.Write([]byte(`{"Codigo":"AP1","Categoria":"Apartamento","Cidade":"Itajaí","Bairro":"Centro"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":400,"message":"Imóvel não encontrado"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *IntegrationTestSuite) get(path string) (*http.Response, map[string]any) {
	return s.do(http.MethodGet, path, "")
}

func (s *IntegrationTestSuite) do(method, path, token string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, s.api.URL+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (s *IntegrationTestSuite) adminToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Scope: middleware.ScopeCacheInvalidate,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte(adminSecret))
	s.Require().NoError(err)
	return signed
}

func (s *IntegrationTestSuite) TestHealthCheck() {
	resp, body := s.get("/health")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("healthy", body["status"])
	s.Equal(map[string]any{"redis": "healthy", "provider:vista": "healthy"}, body["dependencies"])
}

func (s *IntegrationTestSuite) TestSearchIsServedFromEachTier() {
	resp, body := s.get("/api/v1/properties?city=Itaja%C3%AD")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("origin", resp.Header.Get("X-Cache"))
	s.Len(body["properties"], 2)
	pagination := body["pagination"].(map[string]any)
	s.Equal(float64(2), pagination["total"])
	s.Equal(float64(12), pagination["limit"])

	resp, _ = s.get("/api/v1/properties?city=Itaja%C3%AD")
	s.Equal("memory", resp.Header.Get("X-Cache"))
	s.Equal(int32(1), s.vistaHits.Load())

	s.orchestrator.WaitForWrites()
	keys := s.redis.Keys()
	s.Require().Len(keys, 1)
	s.True(strings.HasPrefix(keys[0], services.ListNamespace+":"))
}

func (s *IntegrationTestSuite) TestPropertyDetail() {
	resp, body := s.get("/api/v1/properties/AP1")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	prop := body["property"].(map[string]any)
	s.Equal("AP1", prop["code"])

	resp, _ = s.get("/api/v1/properties/missing")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestInvalidateForcesRefetch() {
	s.get("/api/v1/properties")
	s.get("/api/v1/properties")
	s.Equal(int32(1), s.vistaHits.Load())

	resp, _ := s.do(http.MethodPost, "/api/v1/cache/invalidate", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/api/v1/cache/invalidate", s.adminToken())
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("all", body["invalidated"])

	resp, _ = s.get("/api/v1/properties")
	s.Equal("origin", resp.Header.Get("X-Cache"))
	s.Equal(int32(2), s.vistaHits.Load())
}

func (s *IntegrationTestSuite) TestLosingRedisDegradesWithoutFailingReads() {
	s.redis.Close()

	resp, body := s.get("/api/v1/properties?city=Navegantes")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("origin", resp.Header.Get("X-Cache"))
	s.Len(body["properties"], 2)

	resp, _ = s.get("/api/v1/properties?city=Navegantes")
	s.Equal("memory", resp.Header.Get("X-Cache"))

	resp, body = s.get("/health")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("degraded", body["status"])
	s.False(s.remote.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(s.orchestrator.Invalidate(ctx, services.ListNamespace))
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
