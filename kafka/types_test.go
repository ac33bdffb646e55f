package kafka_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/studiooh/proposal-export-service/kafka"
)

var _ = Describe("ProposalEvent", func() {
	It("should build a message keyed by proposal on the given topic", func() {
		id := uuid.New()
		event := kafka.ProposalEvent{
			ProposalID:     id,
			OrganizationID: "org-1",
			Format:         "pdf",
			Status:         "complete",
			MediaCount:     3,
			Filename:       "OOH_Media_Portfolio.pdf",
			Timestamp:      time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC),
		}
		msg, err := event.ToMessage("studiooh.proposal.exported", kafka.EventHeader{Application: kafka.Application, RequestID: "req-1"})
		Expect(err).ToNot(HaveOccurred())
		Expect(*msg.TopicPartition.Topic).To(Equal("studiooh.proposal.exported"))
		Expect(string(msg.Key)).To(Equal(id.String()))
		Expect(msg.Headers).To(HaveLen(2))
		Expect(msg.Headers[0].Key).To(Equal("application"))
		Expect(string(msg.Headers[1].Value)).To(Equal("req-1"))

		decoded := map[string]interface{}{}
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKeyWithValue("org_id", "org-1"))
		Expect(decoded).To(HaveKeyWithValue("media_count", BeNumerically("==", 3)))
		Expect(decoded).ToNot(HaveKey("message"))
	})

	It("should omit the request id header when unknown", func() {
		Expect(kafka.EventHeader{Application: kafka.Application}.ToHeader()).To(HaveLen(1))
	})
})
