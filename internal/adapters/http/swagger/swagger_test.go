package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	convey.Convey("Given the docs routes on a mux", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		routes := []struct {
			path        string
			contentType string
			contains    string
		}{
			{"/openapi.yaml", "application/yaml; charset=utf-8", "openapi:"},
			{"/api-docs", "text/html; charset=utf-8", redocScript},
		}
		for _, rt := range routes {
			convey.Convey("Then "+rt.path+" should be served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, rt.path, http.NoBody))

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, rt.contentType)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, rt.contains)
			})
		}

		convey.Convey("Then the docs page should point ReDoc at the document", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody))
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "Redoc.init('/openapi.yaml'")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "perfectlap API")
		})
	})

	convey.Convey("Given a nil mux", t, func() {
		convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)
		convey.So(err, convey.ShouldBeNil)

		paths, ok := doc["paths"].(map[string]interface{})
		convey.So(ok, convey.ShouldBeTrue)

		convey.Convey("Then every route should be described", func() {
			for _, p := range []string{"/fastest", "/optimal", "/compare", "/summary", "/best-laps", "/telemetry", "/stats", "/healthz"} {
				convey.So(paths, convey.ShouldContainKey, p)
			}
		})

		convey.Convey("Then session routes should document their failure statuses", func() {
			statuses := map[string][]string{
				"/fastest":   {"200", "400", "404", "422", "502"},
				"/optimal":   {"200", "400", "404", "422", "502"},
				"/compare":   {"200", "400", "404", "422", "502"},
				"/summary":   {"200", "400", "404", "422", "502"},
				"/telemetry": {"200", "400", "404", "422", "502"},
				"/best-laps": {"200", "400", "404", "502"},
			}
			for path, codes := range statuses {
				item, _ := paths[path].(map[string]interface{})
				get, _ := item["get"].(map[string]interface{})
				responses, _ := get["responses"].(map[string]interface{})
				for _, code := range codes {
					convey.So(responses, convey.ShouldContainKey, code)
				}
			}
		})
	})
}
