package github

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDownloadArtifact_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/ci/actions/artifacts/42/zip" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "token secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-GitHub-Api-Version"); got != DefaultAPIVersion {
			t.Errorf("api version = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte("PK\x03\x04zip-bytes"))
	}))
	defer server.Close()

	client, err := New(server.URL, "secret", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := client.DownloadArtifact(context.Background(), "acme/ci", 42, &buf)
	if err != nil {
		t.Fatalf("DownloadArtifact: %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != "PK\x03\x04zip-bytes" {
		t.Errorf("n=%d body=%q", n, buf.String())
	}
}

func TestDownloadArtifact_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		json.NewEncoder(w).Encode(map[string]string{"message": "Artifact has expired"})
	}))
	defer server.Close()

	client, _ := New(server.URL, "t", WithHTTPClient(server.Client()))
	var buf bytes.Buffer
	_, err := client.DownloadArtifact(context.Background(), "acme/ci", 7, &buf)
	if !IsGone(err) {
		t.Fatalf("expected IsGone, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("error payload was written to the destination: %q", buf.String())
	}
	if want := "download artifact 7: HTTP 410: Artifact has expired"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestListArtifacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/ci/actions/artifacts" || r.URL.Query().Get("name") != "x-report.log" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(artifactList{
			TotalCount: 2,
			Artifacts: []Artifact{
				{ID: 2, Name: "x-report.log", Expired: true},
				{ID: 1, Name: "x-report.log"},
			},
		})
	}))
	defer server.Close()

	client, _ := New(server.URL, "", WithHTTPClient(server.Client()))
	arts, err := client.ListArtifacts(context.Background(), "acme/ci", "x-report.log")
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(arts) != 2 || !arts[0].Expired || arts[1].ID != 1 {
		t.Errorf("unexpected artifacts: %+v", arts)
	}
}

func TestListCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sha") != "head" || r.URL.Query().Get("per_page") != "3" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"sha":"head"},{"sha":"p1"},{"sha":"p2"}]`))
	}))
	defer server.Close()

	client, _ := New(server.URL, "", WithHTTPClient(server.Client()))
	commits, err := client.ListCommits(context.Background(), "gcc-mirror/gcc", "head", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 3 || commits[2].SHA != "p2" {
		t.Errorf("commits = %+v", commits)
	}
}

func TestNew_Timeout(t *testing.T) {
	c, err := New("", "")
	if err != nil {
		t.Fatal(err)
	}
	if c.baseURL != DefaultBaseURL || c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("defaults: base=%s timeout=%s", c.baseURL, c.httpClient.Timeout)
	}
	c, _ = New("", "", WithTimeout(time.Second))
	if c.httpClient.Timeout != time.Second {
		t.Errorf("timeout = %s", c.httpClient.Timeout)
	}
	if _, err := New("", "", WithTimeout(-1)); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestAPIError_Predicates(t *testing.T) {
	err404 := newAPIError("list artifacts", 404, "Not Found", "")
	err401 := newAPIError("list artifacts", 401, "Bad credentials", "")

	if !IsNotFound(err404) || IsNotFound(err401) {
		t.Error("IsNotFound mismatch")
	}
	if !IsUnauthorized(err401) {
		t.Error("expected IsUnauthorized for 401")
	}
	if !HasStatusCode(err404, 404) {
		t.Error("expected HasStatusCode(404)")
	}
}
