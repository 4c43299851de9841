package headwaysvc

import (
	"encoding/json"
	"fmt"
	logger "log"

	"github.com/nats-io/nats.go"
	"github.com/samuelwilk/mindthewait/business/headway"
)

// scorePublicationDestination is where headway scores are sent after each poll
type scorePublicationDestination interface {
	Publish(score *headway.HeadwayScore) error
}

// natsScoreDestination sends scores over nats
type natsScoreDestination struct {
	natsConn     *nats.Conn
	scoreSubject string
}

func (n *natsScoreDestination) Publish(score *headway.HeadwayScore) error {
	jsonData, err := json.Marshal(score.ToMap())
	if err != nil {
		return fmt.Errorf("error marshaling score to json: error:%v\n", err)
	}
	return n.natsConn.Publish(n.scoreSubject, jsonData)
}

// scorePublisher takes computed scores and publishes them to a destination
type scorePublisher struct {
	log                         *logger.Logger
	scorePublicationDestination scorePublicationDestination
}

// makeScorePublisher builds scorePublisher. A nil destination disables publication.
func makeScorePublisher(log *logger.Logger,
	scorePublicationDestination scorePublicationDestination) *scorePublisher {
	return &scorePublisher{
		log:                         log,
		scorePublicationDestination: scorePublicationDestination,
	}
}

// publishScores publishes every score in the batch, stopping on the first error
func (p *scorePublisher) publishScores(scores []headway.HeadwayScore) {
	if p.scorePublicationDestination == nil {
		return
	}
	for i := range scores {
		err := p.scorePublicationDestination.Publish(&scores[i])
		if err != nil {
			p.log.Printf("Error publishing score: error:%v\n", err)
			return
		}
	}
}
