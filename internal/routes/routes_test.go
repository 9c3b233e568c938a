package routes

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/handlers"
)

func TestSetupRouterRouteTable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(&handlers.Handlers{}, nil)

	registered := map[string]bool{}
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	want := []string{
		http.MethodPost + " /v1/register",
		http.MethodPost + " /v1/login",
		http.MethodGet + " /v1/products",
		http.MethodGet + " /v1/products/:slug",
		http.MethodGet + " /v1/guest/cart",
		http.MethodGet + " /v1/guest/cart/summary",
		http.MethodPost + " /v1/guest/cart/items",
		http.MethodPut + " /v1/guest/cart/items/:id",
		http.MethodDelete + " /v1/guest/cart/items/:id",
		http.MethodDelete + " /v1/guest/cart",
		http.MethodPost + " /v1/webhooks/paystack",
		http.MethodGet + " /v1/cart",
		http.MethodPost + " /v1/cart/items",
		http.MethodPost + " /v1/cart/merge",
		http.MethodGet + " /v1/wallet",
		http.MethodPost + " /v1/wallet/fund",
		http.MethodPost + " /v1/checkout",
		http.MethodGet + " /v1/orders",
		http.MethodGet + " /v1/orders/:id",
		http.MethodGet + " /v1/notifications",
		http.MethodPatch + " /v1/notifications/:id/read",
		http.MethodPost + " /v1/me/fcm-token",
		http.MethodDelete + " /v1/me/fcm-token",
		http.MethodPost + " /v1/admin/products/import",
	}
	for _, route := range want {
		if !registered[route] {
			t.Fatalf("route %q not registered", route)
		}
	}
}
