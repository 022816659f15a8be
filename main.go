package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"plantcare/auth"
	"plantcare/internal/config"
	"plantcare/internal/db"
	"plantcare/internal/engine"
	"plantcare/internal/internet_bridge"
	"plantcare/internal/mqtt"
	"plantcare/internal/redis"
	"plantcare/internal/scheduler"
	"plantcare/internal/stream"
	"plantcare/internal/taskqueue"
	"plantcare/internal/utils"
	"plantcare/internal/web"

	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	utils.InitLogging(cfg.LogLevel)

	dbConn, err := db.NewDB(cfg.DBURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbConn.Close()

	streamClient := redis.NewStreamClient(cfg.RedisAddr)
	redisClient := redis.NewClient(cfg.RedisAddr)
	telemetryStream := stream.New(streamClient)

	authModule := auth.NewAuthModule(redisClient, cfg.JWTSecret)

	notifier := taskqueue.NewClient(cfg.RedisAddr)
	defer notifier.Close()

	worker := taskqueue.NewWorker(cfg.RedisAddr, dbConn)
	go worker.Start()

	sched := scheduler.NewScheduler(dbConn, telemetryStream)
	if err := sched.AddLightSweep(cfg.LightSweepInterval); err != nil {
		log.Fatalf("Failed to schedule light sweep: %v", err)
	}
	sched.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.NewEngine(telemetryStream, dbConn, notifier, engine.Options{
		PollTimeout:  cfg.EnginePollTimeout,
		BatchSize:    cfg.EngineBatchSize,
		RetryBackoff: cfg.EngineRetryBackoff,
		OpTimeout:    cfg.EngineOpTimeout,
	})
	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	if cfg.MQTTEnabled {
		mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.Fatalf("Failed to connect to MQTT: %v", err)
		}
		defer mqttClient.Disconnect(250)

		bridge := mqtt.NewIngestBridge(mqttClient, dbConn, telemetryStream)
		if err := bridge.Start(); err != nil {
			log.Fatalf("Failed to subscribe to telemetry topic: %v", err)
		}
		defer bridge.Stop()
	}

	if cfg.MDNSLocalName != "" {
		startMDNS(cfg.MDNSLocalName)
	}

	if cfg.RemoteAccessEnabled {
		go internet_bridge.Start(internet_bridge.Config{
			PublicWS:   cfg.RemoteAccessWS,
			LocalURL:   fmt.Sprintf("http://localhost:%d", cfg.Port),
			AgentID:    cfg.AgentID,
			RetryDelay: cfg.RemoteAccessRetry,
		})
	}

	webServer := web.NewWebServer(dbConn, telemetryStream, authModule)
	go func() {
		if err := webServer.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Fatalf("Web server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// The engine finishes its in-flight entry before Run returns; exiting
	// without waiting here would cut that entry off mid-commit.
	cancel()
	<-engineDone
	sched.Stop()
	worker.Stop()
	log.Println("Shutdown complete")
}

// startMDNS announces the daemon on the local network so devices can find
// it without hardcoded addresses
func startMDNS(localName string) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		log.Println("Failed to resolve UDP4 address for mDNS:", err)
		return
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		log.Println("Failed to resolve UDP6 address for mDNS:", err)
		return
	}

	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		log.Println("Failed to listen on UDP4 for mDNS:", err)
		return
	}

	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		log.Println("Failed to listen on UDP6 for mDNS:", err)
		return
	}

	_, err = mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	})
	if err != nil {
		log.Println("Failed to start mDNS server:", err)
	}
}
