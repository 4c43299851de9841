// Package headwaysvc polls GTFS-RT feeds, scores route headways, publishes scores and
// serves scores and arrival predictions over http
package headwaysvc

import (
	logger "log"
	"os"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// StartServices brings up the score loop and the web service. Exits on shutdown signal.
func StartServices(log *logger.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	vehiclePositionsURL string,
	tripUpdatesURL string,
	loadEverySeconds int,
	scoreSubject string,
	httpPort int,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	calendar := gtfs.NewServiceCalendar()
	schedule := gtfs.NewScheduleStore(log, db, calendar)
	feedback := gtfs.NewFeedbackStore(log, db)
	arrivals := gtfs.NewArrivalLogStore(db)

	//shared container updated by the score loop, read by the web service
	container := makeScoreContainer()

	var destination scorePublicationDestination
	if natsConn != nil {
		destination = &natsScoreDestination{
			natsConn:     natsConn,
			scoreSubject: scoreSubject,
		}
	}
	publisher := makeScorePublisher(log, destination)

	//create shutdown channels
	scoreLoopShutdown := make(chan bool, 1)
	webServiceShutdown := make(chan bool, 1)

	//start all child services
	go runScoreLoop(log, &wg, container, schedule, feedback, arrivals, publisher,
		vehiclePositionsURL, tripUpdatesURL, loadEverySeconds, scoreLoopShutdown)
	go runWebService(log, &wg, container, httpPort, webServiceShutdown)

	select {
	case <-shutdownSignal:
		log.Printf("Exiting on shutdown signal, shutting down subroutines")
		scoreLoopShutdown <- true
		webServiceShutdown <- true
		wg.Wait()
		log.Printf("Subroutines shut down, exiting headway service")
	}
}
