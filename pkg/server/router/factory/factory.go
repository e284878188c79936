// Package factory creates router implementations from configuration.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mealboard/marketplace/pkg/server/router"
	ginadapter "github.com/mealboard/marketplace/pkg/server/router/gin"
	gorillaadapter "github.com/mealboard/marketplace/pkg/server/router/gorilla"
	nethttpadapter "github.com/mealboard/marketplace/pkg/server/router/nethttp"
)

// Router types accepted by router_type.
const (
	Gin     = "gin"
	Gorilla = "gorilla"
	NetHTTP = "nethttp"

	// Default is used when router_type is empty.
	Default = Gin
)

var constructors = map[string]func() router.Router{
	Gin:     func() router.Router { return ginadapter.NewRouter() },
	Gorilla: func() router.Router { return gorillaadapter.NewRouter() },
	NetHTTP: func() router.Router { return nethttpadapter.NewRouter() },
}

// NewRouter creates a router by type name, ignoring case and surrounding
// spaces.
func NewRouter(routerType string) (router.Router, error) {
	name := strings.ToLower(strings.TrimSpace(routerType))
	if name == "" {
		name = Default
	}
	newRouter, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported router type %q, expected one of %s", routerType, strings.Join(SupportedTypes(), ", "))
	}
	return newRouter(), nil
}

// SupportedTypes lists the router types in sorted order.
func SupportedTypes() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
