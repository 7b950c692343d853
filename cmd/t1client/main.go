// t1client is a demo command that binds a T=1 session over a serial
// transport, transceives one APDU, and exposes dispatch-loop counters
// over a tiny /metrics HTTP endpoint.
//
// Grounded on cmd/sdo_client/main.go's flag+logrus wiring.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/t1proto/ese-link/pkg/config"
	"github.com/t1proto/ese-link/pkg/t1"
	"github.com/t1proto/ese-link/pkg/transport"
	_ "github.com/t1proto/ese-link/pkg/transport/serial"
)

func main() {
	log.SetLevel(log.DebugLevel)

	configPath := flag.String("c", "", "ini config file path (see pkg/config)")
	apduHex := flag.String("apdu", "00A4040000", "hex-encoded APDU to send")
	metricsAddr := flag.String("metrics", ":9107", "address to serve /metrics on")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}

	reg := prometheus.NewRegistry()
	metrics := t1.NewMetrics(reg, "t1client")
	go serveMetrics(*metricsAddr, reg)

	tr, err := transport.New("serial", cfg.Device)
	if err != nil {
		log.WithError(err).Fatal("failed to open transport")
	}

	session := t1.New(cfg.ResolveDialect(), t1.WithMetrics(metrics))
	if err := session.Bind(cfg.SrcAddr, cfg.DstAddr); err != nil {
		log.WithError(err).Fatal("bind failed")
	}

	apdu, err := hex.DecodeString(*apduHex)
	if err != nil {
		log.WithError(err).Fatal("invalid -apdu hex")
	}

	atr := make([]byte, 32)
	n, err := session.GetATR(tr, atr)
	if err != nil {
		log.WithError(err).Fatal("boot handshake / GetATR failed")
	}
	log.Infof("ATR (%d bytes): % x", n, atr[:n])

	resp := make([]byte, 4096)
	n, err = session.Transceive(tr, apdu, resp)
	if err != nil {
		log.WithError(err).Fatal("transceive failed")
	}
	fmt.Printf("response (%d bytes): % x\n", n, resp[:n])

	session.Release()
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
