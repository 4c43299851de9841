package headwaysvc

import (
	logger "log"
	"sync"
	"time"

	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/business/headway"
	"github.com/samuelwilk/mindthewait/business/prediction"
)

// scoreContainer holds the latest scoring results behind a RWMutex so the web service
// can read while the score loop replaces them
type scoreContainer struct {
	mu        sync.RWMutex
	snapshot  *feed.Snapshot
	scores    []headway.HeadwayScore
	predictor *prediction.Predictor
}

// makeScoreContainer builds an empty scoreContainer
func makeScoreContainer() *scoreContainer {
	return &scoreContainer{}
}

// update replaces the container contents after a poll
func (c *scoreContainer) update(snapshot *feed.Snapshot, scores []headway.HeadwayScore, predictor *prediction.Predictor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snapshot
	c.scores = scores
	c.predictor = predictor
}

// currentScores returns the latest scores and their snapshot timestamp
func (c *scoreContainer) currentScores() ([]headway.HeadwayScore, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil, 0
	}
	return c.scores, c.snapshot.Timestamp
}

// currentPredictor returns the latest predictor, nil before the first successful poll
func (c *scoreContainer) currentPredictor() *prediction.Predictor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.predictor
}

// runScoreLoop polls the feeds every loadEverySeconds, scores the snapshot and
// publishes the results, until shutdown
func runScoreLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	container *scoreContainer,
	schedule *gtfs.ScheduleStore,
	feedback *gtfs.FeedbackStore,
	arrivals *gtfs.ArrivalLogStore,
	publisher *scorePublisher,
	vehiclePositionsURL string,
	tripUpdatesURL string,
	loadEverySeconds int,
	shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	sleepChan := make(chan bool)
	sleep := time.Duration(loadEverySeconds) * time.Second

	for {
		refreshScores(log, container, schedule, feedback, arrivals, publisher,
			vehiclePositionsURL, tripUpdatesURL)

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting score loop on shutdown signal")
			return
		case <-sleepChan:
		}
	}
}

// refreshScores performs one poll: fetch both feeds, build the scoring pipeline over
// the new snapshot, store the results and publish the scores. On fetch failure the
// previous results stay in place.
func refreshScores(log *logger.Logger,
	container *scoreContainer,
	schedule *gtfs.ScheduleStore,
	feedback *gtfs.FeedbackStore,
	arrivals *gtfs.ArrivalLogStore,
	publisher *scorePublisher,
	vehiclePositionsURL string,
	tripUpdatesURL string) {

	snapshot, err := feed.FetchSnapshot(log, vehiclePositionsURL, tripUpdatesURL)
	if err != nil {
		log.Printf("error loading feed snapshot: %v\n", err)
		return
	}

	//live trip updates win over the static schedule when both know a trip
	composite := &headway.CompositeScheduleSource{
		Primary:   snapshot,
		Secondary: schedule,
	}
	interpolator := headway.NewPositionInterpolator(schedule, snapshot, schedule)
	calculator := headway.NewCalculator(interpolator, snapshot)
	adherence := headway.NewAdherenceCalculator(composite, interpolator)
	scorer := headway.NewScorer(calculator, adherence)
	scores := scorer.Compute(snapshot.Vehicles, snapshot.Timestamp)

	status := prediction.NewStatusService(snapshot, adherence, prediction.NewHeuristicReasonProvider(), feedback)
	predictor := prediction.NewPredictor(log, snapshot, schedule, interpolator, status, feedback, arrivals)

	container.update(snapshot, scores, predictor)
	publisher.publishScores(scores)
	log.Printf("scored %d route groups from %d vehicles and %d trip updates\n",
		len(scores), len(snapshot.Vehicles), len(snapshot.Trips))
}
