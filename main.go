package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deemkeen/fanout/activitypub"
	"github.com/deemkeen/fanout/db"
	"github.com/deemkeen/fanout/util"
	"github.com/deemkeen/fanout/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))
	log.Printf("Starting %s", util.GetNameAndVersion())

	database := db.GetDB()
	ctx := context.Background()

	if _, err := database.EnsureServerActor(ctx, conf.Conf.ServerActorName, conf.Conf.SslDomain); err != nil {
		log.Fatalln(err)
	}

	// warm the cache so the first delivery does not pay for the lookup
	serverActor := activitypub.NewServerActor(database, conf.Conf.ServerActorName)
	if _, err := serverActor.Get(ctx); err != nil {
		log.Fatalln(err)
	}

	dist := activitypub.NewDistributor(database, database, serverActor)
	server := web.NewServer(conf, database, dist, activitypub.NewInbox(database, dist), serverActor)

	startServing(conf, server, database)
}

func startServing(conf *util.AppConfig, server *web.Server, database *db.DB) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler: server.Handler(),
	}

	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
