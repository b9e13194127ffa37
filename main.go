package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"timespy/config"
	"timespy/display"
	"timespy/notify"
	"timespy/serve"
	"timespy/util"
	"timespy/video"
	"timespy/video/process"
	"timespy/video/sink"
)

var (
	port       = flag.Int("port", 8080, "Port to host web frontend.")
	configPath = flag.String("config", "timespy.json", "Path to JSON configuration.")
	sourceFlag = flag.String("source", "", "Override the configured frame source.")
	verbose    = flag.Bool("v", false, "Enable debug logging.")
	terminal   = flag.Bool("terminal", false, "Also play the loop in this terminal. Logs go to -logfile.")
	logFile    = flag.String("logfile", "timespy.log", "Log destination while -terminal is set.")
)

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cw, err := config.Load(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := cw.Get()
	if *sourceFlag != "" {
		cfg.Source = *sourceFlag
	}

	if p, err := util.LocateFFmpeg(); err != nil {
		log.Warnf("Unable to locate ffmpeg binary, exports will fail: %v", err)
	} else {
		log.Infof("Located ffmpeg binary, %v", p)
	}

	fs, err := video.NewFilesystem(cfg.ExportDir)
	if err != nil {
		log.Fatalf("Failed to create export directory: %v", err)
	}

	mjpegServer := serve.NewMJPEGServer()
	loopStream := mjpegServer.NewStream("loop")
	defer loopStream.Close()

	presenters := video.Presenters{&serve.Presenter{Stream: loopStream}}
	var interrupted <-chan struct{}
	if *terminal {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)

		term, err := display.NewTerminal()
		if err != nil {
			log.Fatalf("Failed to open terminal display: %v", err)
		}
		defer term.Close()
		presenters = append(presenters, term)
		interrupted = term.Interrupted()
	}

	session := video.NewSession(presenters)
	defer session.Close()
	if err := session.Renderer.SetFrameRate(cfg.FrameRate); err != nil {
		log.Fatalf("Invalid frame rate: %v", err)
	}

	updater := serve.NewStatusUpdater()
	fs.Listeners = append(fs.Listeners, updater)
	notifier := &notify.Notifier{Listeners: []notify.NotifyListener{updater}}
	session.Slicer.Listeners = append(session.Slicer.Listeners, notifier)

	previews := process.NewPreviewProducer()
	defer previews.Close()

	exporter := &video.Exporter{
		Session:    session,
		Filesystem: fs,
		Sinks:      &sink.FFmpegProducer{},
		Thumbs:     process.WriteThumb,
		Previews:   previews,
		Loops:      cfg.ExportLoops,
		Force:      cfg.ExportForce,
		Listeners:  []video.ExportListener{notifier},
	}

	cw.OnChange(func(c *config.Config) {
		if err := session.Renderer.SetFrameRate(c.FrameRate); err != nil {
			log.Errorf("Ignoring frame rate from config: %v", err)
		}
	})

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	if c, ok := src.(interface{ Close() }); ok {
		defer c.Close()
	}
	if err := session.Start(src); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/loop.mjpeg", mjpegServer)
	mux.Handle("/status", &serve.StatusServer{Session: session, Notifier: notifier})
	mux.Handle("/statusws", updater)
	mux.Handle("/exports", &serve.ExportsServer{FS: fs})
	mux.Handle("/export", &serve.ExportServer{Exporter: exporter})
	mux.Handle("/video", serve.NewVideoServer(fs))
	mux.Handle("/thumb", serve.NewThumbServer(fs))
	mux.Handle("/preview", serve.NewPreviewServer(fs))
	mux.Handle("/delete", &serve.DeleteServer{FS: fs})
	mux.Handle("/capture", &serve.CaptureServer{Session: session})
	mux.Handle("/fps", &serve.FrameRateServer{Renderer: session.Renderer})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.Handle("/", serve.Assets())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: handlers.CombinedLoggingHandler(log.StandardLogger().Writer(), mux),
	}
	go func() {
		log.Infof("Hosting web frontend on port %d", *port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server exited: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigs:
		log.Infof("Caught signal %v", sig)
	case <-interrupted:
		log.Info("Interrupted from terminal")
	}

	sctx, scancel := context.WithTimeout(ctx, 5*time.Second)
	defer scancel()
	srv.Shutdown(sctx)
}
