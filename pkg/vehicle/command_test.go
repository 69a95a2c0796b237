package vehicle_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
	"github.com/tsuyoikaze/fordconnect/pkg/vehicle"
)

const (
	testBase      = "https://api.example.com"
	testVehicleID = "v1"
)

// scriptedSession plays back canned responses keyed by "METHOD url", consuming queued
// responses in order so polling sequences can be scripted.
type scriptedSession struct {
	responses map[string][]string
	calls     []string
}

func newScriptedSession() *scriptedSession {
	return &scriptedSession{responses: make(map[string][]string)}
}

func (s *scriptedSession) enqueue(method, url string, bodies ...string) {
	key := method + " " + url
	s.responses[key] = append(s.responses[key], bodies...)
}

func (s *scriptedSession) dispatch(method, url string) ([]byte, error) {
	key := method + " " + url
	s.calls = append(s.calls, key)
	queue := s.responses[key]
	if len(queue) == 0 {
		return nil, fmt.Errorf("unexpected request: %s", key)
	}
	body := queue[0]
	if len(queue) > 1 {
		s.responses[key] = queue[1:]
	}
	return []byte(body), nil
}

func (s *scriptedSession) Get(ctx context.Context, url string) ([]byte, error) {
	return s.dispatch(http.MethodGet, url)
}

func (s *scriptedSession) Post(ctx context.Context, url string, command interface{}) ([]byte, error) {
	return s.dispatch(http.MethodPost, url)
}

func (s *scriptedSession) Delete(ctx context.Context, url string) ([]byte, error) {
	return s.dispatch(http.MethodDelete, url)
}

func (s *scriptedSession) countCalls(method, url string) int {
	key := method + " " + url
	n := 0
	for _, call := range s.calls {
		if call == key {
			n++
		}
	}
	return n
}

const detailBody = `{
	"vehicle": {
		"engineType": "ICE",
		"lastUpdated": "2026-03-04T05:06:07Z",
		"vehicleDetails": {"fuelLevel": {"value": 55.5}, "mileage": 10000},
		"vehicleStatus": {
			"ignitionStatus": {"value": "OFF"},
			"lockStatus": {"value": "LOCKED"}
		}
	}
}`

var _ = Describe("Command execution", func() {
	var (
		session   *scriptedSession
		v         *vehicle.Vehicle
		submitURL string
		checkURL  string
		detailURL string
	)

	BeforeEach(func() {
		session = newScriptedSession()
		v = vehicle.New(session, testBase, testVehicleID)
		v.MaxPollAttempts = 3
		v.PollInterval = 0
		submitURL = testBase + "/api/fordconnect/v1/vehicles/" + testVehicleID + "/lock"
		checkURL = submitURL + "/cmd-1"
		detailURL = testBase + "/api/fordconnect/v3/vehicles/" + testVehicleID
	})

	It("polls until the command completes, then refreshes state once", func() {
		session.enqueue(http.MethodPost, submitURL, `{"status": "SUCCESS", "commandId": "cmd-1"}`)
		session.enqueue(http.MethodGet, checkURL,
			`{"status": "SUCCESS", "commandStatus": "PENDINGRESPONSE"}`,
			`{"status": "SUCCESS", "commandStatus": "PENDINGRESPONSE"}`,
			`{"status": "SUCCESS", "commandStatus": "COMPLETED"}`)
		session.enqueue(http.MethodGet, detailURL, detailBody)

		id, err := v.Execute(context.Background(), vehicle.ActionLock)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("cmd-1"))
		Expect(session.countCalls(http.MethodGet, checkURL)).To(Equal(3))
		Expect(session.countCalls(http.MethodGet, detailURL)).To(Equal(1))
		Expect(v.Locked).To(BeTrue())
		Expect(v.FuelLevel).To(Equal(55.5))
	})

	It("treats EMPTY as success", func() {
		session.enqueue(http.MethodPost, submitURL, `{"status": "SUCCESS", "commandId": "cmd-1"}`)
		session.enqueue(http.MethodGet, checkURL, `{"status": "SUCCESS", "commandStatus": "EMPTY"}`)
		session.enqueue(http.MethodGet, detailURL, detailBody)

		_, err := v.Execute(context.Background(), vehicle.ActionLock)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stops polling on a terminal failure and does not refresh state", func() {
		session.enqueue(http.MethodPost, submitURL, `{"status": "SUCCESS", "commandId": "cmd-1"}`)
		session.enqueue(http.MethodGet, checkURL, `{"status": "SUCCESS", "commandStatus": "MODEMINDEEPSLEEPMODE"}`)

		_, err := v.Execute(context.Background(), vehicle.ActionLock)
		var failed *protocol.CommandFailedError
		Expect(errors.As(err, &failed)).To(BeTrue())
		Expect(failed.Status).To(Equal(protocol.CommandModemAsleep))
		Expect(session.countCalls(http.MethodGet, checkURL)).To(Equal(1))
		Expect(session.countCalls(http.MethodGet, detailURL)).To(BeZero())
	})

	It("gives up after the configured number of status checks", func() {
		session.enqueue(http.MethodPost, submitURL, `{"status": "SUCCESS", "commandId": "cmd-1"}`)
		session.enqueue(http.MethodGet, checkURL, `{"status": "SUCCESS", "commandStatus": "PENDINGRESPONSE"}`)

		_, err := v.Execute(context.Background(), vehicle.ActionLock)
		Expect(protocol.HTTPStatus(err)).To(Equal(http.StatusRequestTimeout))
		Expect(session.countCalls(http.MethodGet, checkURL)).To(Equal(v.MaxPollAttempts))
	})

	It("reports a rejected submission without polling", func() {
		session.enqueue(http.MethodPost, submitURL, `{"status": "FAILED"}`)

		_, err := v.Execute(context.Background(), vehicle.ActionLock)
		var rejected *protocol.CommandRejectedError
		Expect(errors.As(err, &rejected)).To(BeTrue())
		Expect(rejected.Status).To(Equal("FAILED"))
		Expect(session.countCalls(http.MethodGet, checkURL)).To(BeZero())
	})

	It("refuses charge commands for non-electric vehicles before any network traffic", func() {
		v.EV = false
		for _, action := range []vehicle.Action{vehicle.ActionStartCharge, vehicle.ActionStopCharge} {
			_, err := v.Execute(context.Background(), action)
			Expect(errors.Is(err, protocol.ErrNotElectric)).To(BeTrue())
		}
		Expect(session.calls).To(BeEmpty())
	})

	It("allows charge commands once the vehicle is known to be electric", func() {
		v.EV = true
		chargeURL := testBase + "/api/fordconnect/v1/vehicles/" + testVehicleID + "/startCharge"
		session.enqueue(http.MethodPost, chargeURL, `{"status": "SUCCESS", "commandId": "cmd-2"}`)
		session.enqueue(http.MethodGet, chargeURL+"/cmd-2", `{"status": "SUCCESS", "commandStatus": "COMPLETED"}`)
		session.enqueue(http.MethodGet, detailURL, detailBody)

		id, err := v.Execute(context.Background(), vehicle.ActionStartCharge)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("cmd-2"))
	})

	It("returns context errors while waiting between polls", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		session.enqueue(http.MethodPost, submitURL, `{"status": "SUCCESS", "commandId": "cmd-1"}`)
		session.enqueue(http.MethodGet, checkURL, `{"status": "SUCCESS", "commandStatus": "PENDINGRESPONSE"}`)

		_, err := v.Execute(ctx, vehicle.ActionLock)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("cancels a queued signal command", func() {
		signalURL := testBase + "/api/fordconnect/v1/vehicles/" + testVehicleID + "/signal"
		session.enqueue(http.MethodPost, signalURL, `{"status": "SUCCESS", "commandId": "cmd-3"}`)
		session.enqueue(http.MethodDelete, signalURL+"/cmd-3", `{"status": "SUCCESS", "commandStatus": "COMPLETED"}`)

		id, err := v.Submit(context.Background(), vehicle.ActionSignal)
		Expect(err).NotTo(HaveOccurred())

		status, err := v.Cancel(context.Background(), vehicle.ActionSignal, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(protocol.CommandCompleted))
	})
})
