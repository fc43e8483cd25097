// Package recorder polls a gtfs-rt vehicle position feed and records positions to the database
package recorder

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/jmoiron/sqlx"
)

//RunRecorderLoop starts loop that polls a gtfs-rt feed and records new vehicle positions
//for later link speed processing. returns after receiving on shutdownSignal
func RunRecorderLoop(log *log.Logger,
	db *sqlx.DB,
	url string,
	loopEverySeconds int,
	dataSet *gtfs.DataSet,
	shutdownSignal chan os.Signal) error {

	loopDuration := time.Duration(loopEverySeconds) * time.Second

	sleepChan := make(chan bool)
	sleep := time.Duration(0) //sleep for zero seconds the first time

	seenPositions := makeSeenPositions()
	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting on shutdown signal")
			return nil
		case <-sleepChan:
			break
		}

		//set default sleep for next loop in the event of an error after continue statements
		sleep = loopDuration

		// mark the time we start working
		start := time.Now()

		positions, err := getVehiclePositions(log, url, dataSet.Id)
		if err != nil {
			log.Printf("error attempting to get vehicle positions. error:%v\n", err)
			continue
		}

		newPositions := seenPositions.filterNewPositions(positions)
		log.Printf("loaded %d vehicle positions, %d new\n", len(positions), len(newPositions))

		if len(newPositions) > 0 {
			err = gtfs.RecordVehiclePositions(newPositions, db)
			if err != nil {
				log.Printf("error saving %d vehicle positions. error:%v\n", len(newPositions), err)
				continue
			}
		}

		seenPositions.expire(start.Unix())

		// attempt to run the loop every loopEverySeconds by subtracting the time it took to perform the work
		workTook := time.Now().Sub(start)

		log.Printf("work took %s\n", fmtDuration(workTook))

		// if the work took longer than loopEverySeconds don't sleep at all on the next loop
		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}

	}
}

//expireSeenAfterSeconds is how long a vehicle's last reported timestamp is remembered.
//feeds repeat a vehicle's last report until a new one arrives, this only needs to cover
//the repeat window
const expireSeenAfterSeconds = 900

//seenPositions remembers the last recorded timestamp per vehicle so repeated feed entries
//are not recorded twice
type seenPositions struct {
	lastTimestampByVehicleId map[string]int64
}

func makeSeenPositions() *seenPositions {
	return &seenPositions{
		lastTimestampByVehicleId: make(map[string]int64),
	}
}

//filterNewPositions returns positions with a timestamp later than the vehicle's last recorded one
func (s *seenPositions) filterNewPositions(positions []*gtfs.VehiclePosition) []*gtfs.VehiclePosition {
	newPositions := make([]*gtfs.VehiclePosition, 0, len(positions))
	for _, position := range positions {
		if last, present := s.lastTimestampByVehicleId[position.VehicleId]; present && position.Timestamp <= last {
			continue
		}
		s.lastTimestampByVehicleId[position.VehicleId] = position.Timestamp
		newPositions = append(newPositions, position)
	}
	return newPositions
}

//expire forgets vehicles that have not reported recently
func (s *seenPositions) expire(now int64) {
	for vehicleId, timestamp := range s.lastTimestampByVehicleId {
		if now-timestamp > expireSeenAfterSeconds {
			delete(s.lastTimestampByVehicleId, vehicleId)
		}
	}
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%d", h, m, mill)
}
