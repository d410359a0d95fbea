// Command calibsim exercises the calibration pipeline on a synthetic scene:
// it renders field markings as seen by the head cameras, records samples and
// runs the optimization against a deliberately disturbed calibration. With
// -fit it instead runs the line fitter on a single image file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"camera-calibrator/internal/calib"
	"camera-calibrator/internal/camera"
	"camera-calibrator/internal/field"
	"camera-calibrator/internal/imgio"
	"camera-calibrator/internal/synth"
	"camera-calibrator/internal/version"
	"camera-calibrator/pkg/geometry"
)

func main() {
	fieldPath := flag.String("field", "", "Path to field dimensions JSON (defaults to the standard field)")
	paramsOut := flag.String("o", "", "Write the calibration result to this JSON file")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for the disturbance and optimizer restarts")
	cycles := flag.Int("cycles", 3000, "Maximum optimization cycles")
	verbose := flag.Bool("v", false, "Verbose calibrator logging")
	fitImage := flag.String("fit", "", "Run the line fitter on this image instead of the simulation")
	ax := flag.Float64("ax", 0, "Fit mode: first endpoint x")
	ay := flag.Float64("ay", 0, "Fit mode: first endpoint y")
	bx := flag.Float64("bx", 0, "Fit mode: second endpoint x")
	by := flag.Float64("by", 0, "Fit mode: second endpoint y")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	log := newLogger(*verbose)
	defer log.Sync()

	dims := field.Default()
	if *fieldPath != "" {
		var err error
		if dims, err = field.LoadFromFile(*fieldPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load field dimensions: %v\n", err)
			os.Exit(1)
		}
	}

	if *fitImage != "" {
		runFit(*fitImage, dims, geometry.Point2D{X: *ax, Y: *ay}, geometry.Point2D{X: *bx, Y: *by})
		return
	}

	result, err := runSimulation(dims, *seed, *cycles, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		os.Exit(1)
	}

	if *paramsOut != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			err = os.WriteFile(*paramsOut, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Result written to %s\n", *paramsOut)
	}
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

// simScene is the simulated goal-area corner, viewed from beside the corner
// with the head panned toward it. Positions are robot-relative millimeters;
// the three painted lines and the penalty mark satisfy the given field
// dimensions.
type simScene struct {
	capture camera.Capture
	near    synth.Stripe
	far     synth.Stripe
	connect synth.Stripe
	mark    geometry.Point2D
}

func newSimScene(dims field.Dimensions) simScene {
	nearX, farX := 1300.0, 1300+dims.GoalAreaWidth()
	return simScene{
		capture: camera.Capture{
			Camera:      camera.Upper,
			Info:        camera.DefaultInfo(),
			TorsoHeight: 450,
			HeadPan:     0.47,
			HeadTilt:    0.35,
		},
		near:    synth.Stripe{A: geometry.Point2D{X: nearX, Y: 130}, B: geometry.Point2D{X: nearX, Y: 1600}, Width: dims.LineWidth},
		far:     synth.Stripe{A: geometry.Point2D{X: farX, Y: 130}, B: geometry.Point2D{X: farX, Y: 1600}, Width: dims.LineWidth},
		connect: synth.Stripe{A: geometry.Point2D{X: nearX, Y: 130}, B: geometry.Point2D{X: farX, Y: 130}, Width: dims.LineWidth},
		mark:    geometry.Point2D{X: nearX - dims.GoalAreaToMark(), Y: 600},
	}
}

func runSimulation(dims field.Dimensions, seed int64, cycles int, log *zap.SugaredLogger) (camera.Parameters, error) {
	rng := rand.New(rand.NewSource(seed))
	chain := camera.NewChain(camera.DefaultHeadGeometry())
	kin := calib.ChainKinematics(chain)
	cal := calib.New(calib.DefaultOptions(), dims, kin, rng, log)
	scene := newSimScene(dims)

	// The simulated robot believes in a slightly wrong calibration; the
	// world is rendered through the true one.
	truth := camera.Parameters{}
	current := camera.Parameters{
		UpperRoll: (rng.Float64()*2 - 1) * 0.02,
		UpperTilt: (rng.Float64()*2 - 1) * 0.02,
	}
	fmt.Printf("=== Disturbed calibration ===\n")
	printParams(current)

	img := synth.Render(chain, scene.capture, truth, []synth.Stripe{
		scene.near, scene.far, scene.connect,
		{A: scene.mark, B: scene.mark, Width: 100},
	})
	defer img.Close()

	var lines []calib.PerceivedLine
	for _, s := range []synth.Stripe{scene.connect, scene.near, scene.far} {
		line, ok := synth.Perceive(chain, scene.capture, truth, s, 1)
		if !ok {
			return camera.Parameters{}, fmt.Errorf("stripe %v not in view", s.A)
		}
		// The robot's own ground projections use its wrong calibration.
		reground(&line, kin.Projection(scene.capture, current))
		lines = append(lines, line)
	}
	mark, ok := synth.PerceiveMark(chain, scene.capture, truth, scene.mark)
	if !ok {
		return camera.Parameters{}, fmt.Errorf("mark not in view")
	}
	if onField, ok := kin.Projection(scene.capture, current).ImageToGround(mark.InImage); ok {
		mark.OnField = onField
	}

	now := time.Unix(0, 0)
	frame := func(target calib.RunState, cfg *calib.ConfigRequest, withPercepts bool) *calib.Frame {
		now = now.Add(33 * time.Millisecond)
		f := &calib.Frame{
			Time:    now,
			Capture: scene.capture,
			Image:   &img,
			Request: calib.Request{TargetState: target, TotalSamples: 5, Config: cfg},
			Current: current,
		}
		if withPercepts {
			f.Lines = lines
			f.Mark = &mark
		}
		return f
	}

	fmt.Printf("\n=== Recording samples ===\n")
	configs := []*calib.ConfigRequest{
		{
			Index:  0,
			Camera: camera.Upper,
			Kinds:  calib.Kinds(calib.CornerAngle, calib.ParallelAngle, calib.ParallelLinesDistance),
		},
		{
			Index:  1,
			Camera: camera.Upper,
			Kinds:  calib.Kinds(calib.GoalAreaDistance, calib.GroundLineDistance),
		},
	}
	for _, cfg := range configs {
		recording := *cfg
		recording.Record = true
		var status calib.Status
		for i := 0; i < 20; i++ {
			_, status = cal.Update(frame(calib.RecordSamples, &recording, true))
			if status.Config == calib.ConfigFinished {
				break
			}
		}
		fmt.Printf("Configuration %d: %s\n", cfg.Index, status.Config)
		if status.Config != calib.ConfigFinished {
			return camera.Parameters{}, fmt.Errorf("configuration %d did not finish", cfg.Index)
		}
	}

	fmt.Printf("\n=== Optimizing ===\n")
	for i := 0; i < cycles; i++ {
		f := frame(calib.Optimize, nil, false)
		f.Current = current
		params, status := cal.Update(f)
		current = params
		if status.State == calib.Idle {
			fmt.Printf("Converged after %d cycles\n", i+1)
			fmt.Printf("\n=== Result ===\n")
			printParams(current)
			return current, nil
		}
	}
	return camera.Parameters{}, fmt.Errorf("no convergence within %d cycles", cycles)
}

// reground replaces a percept's ground endpoints with unprojections under
// the given calibration, mimicking an upstream perception stage.
func reground(line *calib.PerceivedLine, proj calib.Projection) {
	if a, ok := proj.ImageToGround(line.AImage); ok {
		line.AField = a
	}
	if b, ok := proj.ImageToGround(line.BImage); ok {
		line.BField = b
	}
}

func printParams(p camera.Parameters) {
	fmt.Printf("Lower roll/tilt: %+.4f / %+.4f rad\n", p.LowerRoll, p.LowerTilt)
	fmt.Printf("Upper roll/tilt: %+.4f / %+.4f rad\n", p.UpperRoll, p.UpperTilt)
	fmt.Printf("Body roll/tilt:  %+.4f / %+.4f rad\n", p.BodyRoll, p.BodyTilt)
}

// flatProjection maps image coordinates one-to-one onto the ground, so the
// fitter's refinement can be inspected in pixel terms.
type flatProjection struct{}

func (flatProjection) ImageToGround(px geometry.Point2D) (geometry.Point2D, bool) { return px, true }
func (flatProjection) GroundToImage(pt geometry.Point2D) (geometry.Point2D, bool) { return pt, true }

func runFit(path string, dims field.Dimensions, a, b geometry.Point2D) {
	if !imgio.IsSupportedFormat(path) {
		fmt.Fprintf(os.Stderr, "Unsupported image format, expected one of %v\n", imgio.SupportedFormats())
		os.Exit(1)
	}
	img, err := imgio.LoadGray(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	fitter := calib.NewLineFitter(calib.DefaultOptions(), dims.LineWidth)
	cl := calib.CorrectedLine{AImage: a, BImage: b}
	if !fitter.Fit(img, flatProjection{}, &cl) {
		fmt.Println("Fit failed")
		os.Exit(1)
	}
	fmt.Printf("Refined line: (%.2f, %.2f) - (%.2f, %.2f)\n", cl.AImage.X, cl.AImage.Y, cl.BImage.X, cl.BImage.Y)
	fmt.Printf("Width offset: %+.1f\n", cl.Offset)
}
