// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command glassdemo renders an HDR sky with bloom and tonemapping into
// headless windows and reports what was presented.
//
// Usage:
//
//	glassdemo -frames 120 -windows 2
//	glassdemo -config glass.toml -watch -v
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chewxy/math32"
	"github.com/gogpu/glass"
	"github.com/gogpu/glass/config"
	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/glass/surface/surfacetest"
	"golang.org/x/image/math/f32"
)

//go:embed sky.wgsl
var skyWGSL string

var skyPush = pipeline.PushConstants{
	Size: 64,
	Fields: []pipeline.Field{
		{Name: "horizon", Offset: 0, Size: 16},
		{Name: "zenith", Offset: 16, Size: 16},
		{Name: "sun", Offset: 32, Size: 16},
		{Name: "time", Offset: 48, Size: 4},
	},
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML or YAML configuration file")
		preset     = flag.String("preset", "default", "configuration preset when no file is given")
		backend    = flag.String("backend", "noop", "device backend (noop or vulkan)")
		frames     = flag.Int("frames", 60, "frames to render")
		windows    = flag.Int("windows", 1, "headless windows to open")
		watch      = flag.Bool("watch", false, "reload post-process settings when the config file changes")
		verbose    = flag.Bool("v", false, "log debug output")
	)
	flag.Parse()

	if *verbose {
		glass.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Device.Backend = *backend
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	dev, err := device.NewWithConfig(cfg.DeviceConfig())
	if err != nil {
		log.Fatalf("device: %v", err)
	}
	defer dev.Close()

	surfacetest.Register(dev.Device())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &skyApp{windows: *windows, reload: make(chan postprocess.Settings, 1)}
	if *watch && *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(c config.Config) {
				select {
				case app.reload <- c.PostProcessSettings():
				default:
				}
			}, func(err error) {
				log.Printf("config reload: %v", err)
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("config watch: %v", err)
			}
		}()
	}

	g, err := glass.New(app,
		glass.WithConfig(cfg),
		glass.WithDeviceContext(dev),
		glass.WithPresenterFactory(func(h surface.Handle) (surface.Presenter, error) {
			p, err := surface.NewPresenter(h)
			if err != nil {
				return nil, err
			}
			if hp, ok := p.(*surfacetest.Presenter); ok {
				app.presenters = append(app.presenters, hp)
			}
			return p, nil
		}),
	)
	if err != nil {
		log.Fatalf("glass: %v", err)
	}

	if err := g.Run(ctx, glass.NewScript().Idle(*frames)); err != nil {
		log.Fatalf("run: %v", err)
	}

	for i, p := range app.presenters {
		s := p.Stats()
		fmt.Printf("window %d: %d presented, %d discarded\n", i+1, s.Presents, s.Discards)
	}
	printCurve(cfg.PostProcessSettings().Grading)
}

func loadConfig(path, preset string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	c, ok := config.Preset(preset)
	if !ok {
		return config.Config{}, fmt.Errorf("unknown preset %q", preset)
	}
	return c, nil
}

// skyApp opens its windows on Start and draws the sky into each of them
// every frame.
type skyApp struct {
	glass.BaseApp

	windows    int
	sky        pipeline.ID
	block      *pipeline.Block
	reload     chan postprocess.Settings
	presenters []*surfacetest.Presenter
}

func (a *skyApp) Start(ctx *glass.Context) error {
	id, err := ctx.Registry().Register(pipeline.KindRender,
		pipeline.Shader{Label: "sky", WGSL: skyWGSL},
		pipeline.LayoutSpec{
			Label:         "sky",
			Name:          "sky",
			PushConstants: skyPush,
			Fragment:      pipeline.FragmentState{Targets: postprocess.HDRTargets(nil)},
		})
	if err != nil {
		return err
	}
	a.sky = id
	a.block = pipeline.NewBlock(skyPush)

	for i := 0; i < a.windows; i++ {
		cfg := ctx.DefaultWindow()
		cfg.Title = fmt.Sprintf("glassdemo %d", i+1)
		if _, err := ctx.OpenWindow(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (a *skyApp) Update(ctx *glass.Context) {
	select {
	case s := <-a.reload:
		for _, id := range ctx.Windows() {
			_ = ctx.SetPostProcess(id, s)
		}
		glass.Logger().Info("glassdemo: post-process reloaded", "bloom", s.BloomEnabled)
	default:
	}

	t := float32(ctx.Frame()) / 60
	sunY := 0.5 + 0.3*math32.Sin(t)
	_ = a.block.SetFloat32("horizon", 1.0, 0.6, 0.3, 1)
	_ = a.block.SetFloat32("zenith", 0.1, 0.2, 0.6, 1)
	_ = a.block.SetFloat32("sun", 0.5, sunY, 0.05, 8)
	_ = a.block.SetFloat32("time", t)

	for _, id := range ctx.Windows() {
		err := ctx.Enqueue(id, pipeline.Request{
			Pipeline: a.sky,
			Push:     a.block.Bytes(),
			Work:     pipeline.Draw{VertexCount: 3},
		})
		if err != nil {
			glass.Logger().Warn("glassdemo: enqueue", "window", id, "error", err)
		}
	}
}

// printCurve prints the tonemap response for a few HDR luminances.
func printCurve(g postprocess.ColorGrading) {
	fmt.Println("tonemap response:")
	for _, v := range []float32{0.05, 0.18, 0.5, 1, 2, 4, 8, 16} {
		out := postprocess.TonemapReference(f32.Vec3{v, v, v}, g)
		srgb := postprocess.EncodeSRGB(out[0])
		fmt.Printf("  %6.2f -> linear %.4f  srgb %.4f\n", v, out[0], srgb)
	}
}
