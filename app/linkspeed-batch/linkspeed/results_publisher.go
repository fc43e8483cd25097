package linkspeed

import (
	"encoding/json"
	"log"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

//ResultsPublisher takes link records and summaries produced by a batch run and sends them to
//their destinations (such as database and nats)
type ResultsPublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   *nats.Conn
	recordToDatabase bool
	publishOverNats  bool
}

//MakeResultsPublisher creates ResultsPublisher
func MakeResultsPublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	recordToDatabase bool,
	publishOverNats bool) *ResultsPublisher {
	return &ResultsPublisher{
		log:              log,
		db:               db,
		natsConnection:   natsConnection,
		recordToDatabase: recordToDatabase,
		publishOverNats:  publishOverNats,
	}
}

//Publish sends a BatchResult's link records and summaries over NATS and records them to the
//database according to publishOverNats and recordToDatabase
func (p *ResultsPublisher) Publish(result *BatchResult) {
	if p.publishOverNats {
		p.sendOverNats(result)
	}
	if p.recordToDatabase {
		p.record(result)
	}
}

func (p *ResultsPublisher) sendOverNats(result *BatchResult) {
	jsonData, err := json.Marshal(result)
	if err != nil {
		p.log.Printf("failed to marshal BatchResult in "+
			"ResultsPublisher.sendOverNats, error:%v", err)
		return
	}
	err = p.natsConnection.Publish("link-speed-results", jsonData)
	if err != nil {
		p.log.Printf("failed to send BatchResult in "+
			"ResultsPublisher.sendOverNats, error:%v", err)
	}
}

func (p *ResultsPublisher) record(result *BatchResult) {
	linkRecords := result.AllLinkRecords()
	err := gtfs.RecordLinkRecords(linkRecords, p.db)
	if err != nil {
		p.log.Printf("failed to record %d link records, error:%v", len(linkRecords), err)
	}
	err = gtfs.RecordLinkSpeedSummaries(result.Summaries, p.db)
	if err != nil {
		p.log.Printf("failed to record %d link speed summaries, error:%v", len(result.Summaries), err)
	}
}
