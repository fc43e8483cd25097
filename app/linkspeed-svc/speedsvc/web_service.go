// Package speedsvc serves aggregated link speed summaries over http
package speedsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SACOG/linkspeeds/business/data/gtfs"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//linkSpeedSummaryHandler holds data needed to respond to link speed summary requests
type linkSpeedSummaryHandler struct {
	log       *logger.Logger
	db        *sqlx.DB
	dataSetId int64
}

//linkSpeedSummaryHandler factory
func makeLinkSpeedSummaryHandler(log *logger.Logger,
	db *sqlx.DB,
	dataSetId int64) *linkSpeedSummaryHandler {
	return &linkSpeedSummaryHandler{
		log:       log,
		db:        db,
		dataSetId: dataSetId,
	}
}

//ServeHTTP implements linkSpeedSummaryHandler's http.Handler interface.
//routeId comes from the path, day type may be limited with the dayType query parameter
func (l *linkSpeedSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	routeId := mux.Vars(r)["routeId"]
	dayType := r.FormValue("dayType")

	summaries, err := gtfs.GetLinkSpeedSummariesForRoute(l.db, l.dataSetId, routeId, dayType)
	if err != nil {
		l.log.Printf("Error loading link speed summaries for route %s: error:%v\n", routeId, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}

	jsonWrapper := makeJsonLinkSpeedSummaryResponseWrapper(routeId, summaries)
	jsonData, err := json.Marshal(jsonWrapper)
	if err != nil {
		l.log.Printf("Error marshaling link speed summaries to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	byteCount, err := w.Write(jsonData)
	if err != nil {
		l.log.Printf("Error writing json response: %s", err)
		return
	}
	l.log.Printf("wrote %d bytes in json response.", byteCount)
}

//JsonLinkSpeedSummaryResponseWrapper provides json response wrapper around gtfs.LinkSpeedSummary list
type JsonLinkSpeedSummaryResponseWrapper struct {
	Timestamp int64                    `json:"timestamp"`
	RouteId   string                   `json:"route_id"`
	Summaries []*gtfs.LinkSpeedSummary `json:"summaries"`
}

//makeJsonLinkSpeedSummaryResponseWrapper creates JsonLinkSpeedSummaryResponseWrapper
func makeJsonLinkSpeedSummaryResponseWrapper(routeId string,
	summaries []*gtfs.LinkSpeedSummary) *JsonLinkSpeedSummaryResponseWrapper {
	if summaries == nil {
		summaries = make([]*gtfs.LinkSpeedSummary, 0)
	}
	return &JsonLinkSpeedSummaryResponseWrapper{
		Timestamp: time.Now().Unix(),
		RouteId:   routeId,
		Summaries: summaries,
	}
}

//createServer creates configured http.Server for responding to link speed summary requests
func createServer(log *logger.Logger,
	db *sqlx.DB,
	dataSetId int64,
	httpPort int) *http.Server {

	summaryService := makeLinkSpeedSummaryHandler(log, db, dataSetId)

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/routes/{routeId}/linkSpeeds", summaryService)
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

//RunWebService starts up the link speed web service, and terminates on shutdown signal
func RunWebService(log *logger.Logger,
	db *sqlx.DB,
	dataSetId int64,
	httpPort int,
	shutdownSignal chan os.Signal) error {

	srv := createServer(log, db, dataSetId, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()

	select {
	case <-shutdownSignal:
		log.Printf("ending webservice on shutdown signal")
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Printf("error shutting down webservice, error:%s", err)
			return err
		}
	}
	return nil
}
