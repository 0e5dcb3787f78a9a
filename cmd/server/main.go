package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/logger"
	"mapview/internal/maps"
	"mapview/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: $MAPVIEW_CONFIG)")
	flag.Parse()

	logger.Init()
	log := logger.Log

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	// Generate host key if it doesn't exist
	if err := ensureHostKey(cfg.Server.HostKey); err != nil {
		log.WithError(err).Fatal("host key")
	}

	reg, err := faces.LoadManifest(cfg.Assets.Faces)
	if err != nil {
		log.WithError(err).Warn("face manifest unavailable, using built-in faces")
		reg = faces.Builtin(cfg.Lighting.TileSize)
	}
	log.WithField("faces", reg.Len()).Info("faces loaded")

	scene, err := maps.LoadScene(cfg.Assets.Scene)
	if err != nil {
		log.WithError(err).Warn("scene unavailable, using default scene")
		scene = maps.DefaultScene()
	}
	log.WithField("scene", scene.Name).
		WithField("size", [2]int{scene.Width, scene.Height}).
		Info("scene loaded")

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(promReg)

	sshServer := server.NewSSHServer(cfg, reg, scene, metrics, promReg)

	go func() {
		log.WithField("addr", cfg.Server.MetricsAddr).Info("debug HTTP listening")
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, server.SetupRoutes(sshServer, promReg)); err != nil {
			log.WithError(err).Error("debug HTTP server stopped")
		}
	}()

	log.Infof("connect with: ssh -t -p %s you@localhost", portOf(cfg.Server.Addr))
	if err := sshServer.Start(); err != nil {
		log.WithError(err).Fatal("SSH server error")
	}
}

func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}

func ensureHostKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // key already exists
	}

	logger.Log.Info("generating new host key")
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}

	pemBlock := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return pem.Encode(f, pemBlock)
}
