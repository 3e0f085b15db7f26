package rebalance_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const (
	iterationsResponseBody = `[
		{"id":102,"iid":8,"title":"Sprint 8","start_date":"2024-10-15","due_date":"2024-10-28"},
		{"id":101,"iid":7,"title":"Sprint 7","start_date":"2024-10-01","due_date":"2024-10-14"}
	]`
	issuesResponseTemplate = `{"data":{"group":{"projects":{"nodes":[
		{"webUrl":"http://%s/acme/api","issues":{"nodes":[
			{"iid":"1","webUrl":"http://%s/acme/api/-/issues/1","weight":16,
			 "labels":{"nodes":[{"title":"priority::Minor"}]},
			 "assignees":{"nodes":[{"username":"alice"}]}}
		]}}
	]}}}}`
	mutationResponseBody = `{"data":{"m0":{"errors":[],"issue":{"iid":"1"}}}}`
)

type rebalanceGitLabServer struct {
	*httptest.Server
	requestCount atomic.Int32
}

func newRebalanceGitLabServer(testInstance *testing.T) *rebalanceGitLabServer {
	testInstance.Helper()
	server := &rebalanceGitLabServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.requestCount.Add(1)
		if request.Header.Get("Authorization") != "Bearer "+configurationTokenValueConstant {
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case request.Method == http.MethodGet && strings.HasSuffix(request.URL.Path, "/iterations"):
			_, _ = io.WriteString(writer, iterationsResponseBody)
		case request.Method == http.MethodPost && request.URL.Path == "/api/graphql":
			var payload struct {
				Query string `json:"query"`
			}
			if decodeError := json.NewDecoder(request.Body).Decode(&payload); decodeError != nil {
				writer.WriteHeader(http.StatusBadRequest)
				return
			}
			if strings.HasPrefix(payload.Query, "mutation") {
				if !strings.Contains(payload.Query, `projectPath: "acme/api"`) || !strings.Contains(payload.Query, "gid://gitlab/Iteration/102") {
					writer.WriteHeader(http.StatusBadRequest)
					return
				}
				_, _ = io.WriteString(writer, mutationResponseBody)
				return
			}
			_, _ = fmt.Fprintf(writer, issuesResponseTemplate, request.Host, request.Host)
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	testInstance.Cleanup(server.Close)
	return server
}
