package support

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeKo-Tech/floorpose/internal/raster"
	"github.com/MeKo-Tech/floorpose/internal/testutil"
	"github.com/cucumber/godog"
)

func sceneByName(name string) (testutil.Scene, error) {
	switch name {
	case "square":
		return testutil.SquareScene(), nil
	case "floor":
		return testutil.FloorScene(), nil
	case "collinear":
		return testutil.CollinearScene(), nil
	default:
		return testutil.Scene{}, fmt.Errorf("unknown scene %q", name)
	}
}

func sceneRequest(sc testutil.Scene) map[string]interface{} {
	return map[string]interface{}{
		"image_size": map[string]int{"width": sc.Width, "height": sc.Height},
		"points_img": sc.Points,
	}
}

func (testCtx *TestContext) aRequestFileForTheScene(name string) error {
	sc, err := sceneByName(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sceneRequest(sc))
	if err != nil {
		return err
	}
	path := testCtx.TempPath(name + "-request.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write request file: %w", err)
	}
	testCtx.RequestFile = path
	return nil
}

func (testCtx *TestContext) aFileWith(name string, content *godog.DocString) error {
	path := testCtx.TempPath(name)
	if err := os.WriteFile(path, []byte(content.Content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) aCheckerboardImageOfSize(name string, width, height int) error {
	return raster.Save(testutil.CheckerImage(width, height, 10), testCtx.TempPath(name), 90)
}

// RegisterSceneSteps registers the fixture steps.
func (testCtx *TestContext) RegisterSceneSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a request file for the "([^"]*)" scene$`, testCtx.aRequestFileForTheScene)
	sc.Step(`^a file "([^"]*)" with:$`, testCtx.aFileWith)
	sc.Step(`^a checkerboard image "([^"]*)" of size (\d+)x(\d+)$`, testCtx.aCheckerboardImageOfSize)
}
