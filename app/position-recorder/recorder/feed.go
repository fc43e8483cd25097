package recorder

import (
	"log"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/SACOG/linkspeeds/foundation/httpclient"
	"google.golang.org/protobuf/proto"
)

/*
getVehiclePositions retrieves gtfs-realtime vehicle positions and loads them into a non-protocol buffer object.
Any changes to the GTFS-realtime protocol or generated code can be handled here and not elsewhere in the program.
*/
func getVehiclePositions(log *log.Logger, url string, dataSetId int64) ([]*gtfs.VehiclePosition, error) {
	gtfsResponseBytes, err := httpclient.GetBytes(url)
	if err != nil {
		return nil, err
	}
	feedMessage := gtfsrt.FeedMessage{}
	err = proto.Unmarshal(gtfsResponseBytes, &feedMessage)
	if err != nil {
		log.Printf("Unable to unmarshal FeedMessage: %v\n", err)
		return nil, err
	}
	var positions []*gtfs.VehiclePosition
	now := time.Now().Unix()
	for _, entity := range feedMessage.Entity {
		vehicle := entity.GetVehicle()
		if vehicle == nil {
			continue
		}
		vehicleDescriptor := vehicle.GetVehicle()
		if vehicleDescriptor == nil || vehicleDescriptor.Id == nil {
			log.Printf("Vehicle entity missing vehicle identifier, %v\n", entity.GetId())
			continue
		}
		trip := vehicle.GetTrip()
		if trip == nil || trip.TripId == nil {
			//positions that can't be matched to a trip can never produce a link estimate
			continue
		}
		feedPosition := vehicle.GetPosition()
		if feedPosition == nil || feedPosition.Latitude == nil || feedPosition.Longitude == nil {
			continue
		}

		position := gtfs.VehiclePosition{
			DataSetId: dataSetId,
			TripId:    trip.GetTripId(),
			VehicleId: vehicleDescriptor.GetId(),
			Latitude:  float64(feedPosition.GetLatitude()),
			Longitude: float64(feedPosition.GetLongitude()),
			Speed:     feedPosition.Speed,
			Bearing:   feedPosition.Bearing,
		}
		if vehicle.Timestamp != nil {
			position.Timestamp = int64(vehicle.GetTimestamp())
		} else {
			position.Timestamp = now
		}

		positions = append(positions, &position)
	}
	return positions, nil
}
