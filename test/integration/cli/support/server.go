package support

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/floorpose/internal/camera"
	"github.com/MeKo-Tech/floorpose/internal/server"
	"github.com/cucumber/godog"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

func defaultServerConfig() server.Config {
	return server.Config{
		CORSOrigin:       "*",
		MaxBodyKB:        1024,
		TimeoutSec:       10,
		ImagesEnabled:    true,
		OverlayColor:     "#FFFF00",
		OverlayThickness: 3,
		RectifiedFormat:  "png",
		JPEGQuality:      90,
		Solver:           camera.DefaultOptions(),
	}
}

func (testCtx *TestContext) startTestHTTPServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		testCtx.stopTestHTTPServer()
	}
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Server.Close()
		testCtx.HTTPTestServer = nil
	}
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startTestHTTPServer(defaultServerConfig())
}

func (testCtx *TestContext) theServerIsRunningWithImagesDisabled() error {
	cfg := defaultServerConfig()
	cfg.ImagesEnabled = false
	return testCtx.startTestHTTPServer(cfg)
}

func (testCtx *TestContext) theServerIsRunningWithARateLimitOfBurst(burst int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit = server.RateLimitSettings{Enabled: true, RequestsPerSecond: 0.001, Burst: burst}
	return testCtx.startTestHTTPServer(cfg)
}

func (testCtx *TestContext) doRequest(method, path string, body io.Reader) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	req, err := http.NewRequest(method, testCtx.HTTPTestServer.Server.URL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGet(path string) error {
	return testCtx.doRequest(http.MethodGet, path, nil)
}

func (testCtx *TestContext) iPostTheSceneTo(name, path string) error {
	sc, err := sceneByName(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sceneRequest(sc))
	if err != nil {
		return err
	}
	return testCtx.doRequest(http.MethodPost, path, bytes.NewReader(data))
}

func (testCtx *TestContext) iPostTheSceneWithImageTo(name, imageName, path string) error {
	sc, err := sceneByName(name)
	if err != nil {
		return err
	}
	img, err := os.ReadFile(testCtx.TempPath(imageName))
	if err != nil {
		return err
	}
	body := sceneRequest(sc)
	body["include_image"] = true
	body["image_b64"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return testCtx.doRequest(http.MethodPost, path, bytes.NewReader(data))
}

func (testCtx *TestContext) iPostTo(path string, body *godog.DocString) error {
	return testCtx.doRequest(http.MethodPost, path, strings.NewReader(body.Content))
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) responseJSON() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return data, nil
}

func (testCtx *TestContext) theResponseJSONShouldContain(field string) error {
	data, err := testCtx.responseJSON()
	if err != nil {
		return err
	}
	_, err = lookupField(data, field)
	return err
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	data, err := testCtx.responseJSON()
	if err != nil {
		return err
	}
	return fieldEquals(data, field, expected)
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if testCtx.LastHTTPHeaders[name] == "" {
		return fmt.Errorf("response header %s is not set", name)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with images disabled$`, testCtx.theServerIsRunningWithImagesDisabled)
	sc.Step(`^the server is running with a rate limit of burst (\d+)$`, testCtx.theServerIsRunningWithARateLimitOfBurst)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGet)
	sc.Step(`^I POST the "([^"]*)" scene to "([^"]*)"$`, testCtx.iPostTheSceneTo)
	sc.Step(`^I POST the "([^"]*)" scene with image "([^"]*)" to "([^"]*)"$`, testCtx.iPostTheSceneWithImageTo)
	sc.Step(`^I POST to "([^"]*)" with:$`, testCtx.iPostTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response JSON should contain "([^"]*)"$`, testCtx.theResponseJSONShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
}
