package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message represents a chat message in MongoDB
type Message struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	From        primitive.ObjectID  `json:"from" bson:"from"`
	Content     string              `json:"content,omitempty" bson:"content,omitempty"`
	File        *File               `json:"file,omitempty" bson:"file,omitempty"`
	ReplyTo     *primitive.ObjectID `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	SentTo      SentTo              `json:"sentTo" bson:"sentTo"`
	DeliveredTo []Receipt           `json:"deliveredTo" bson:"deliveredTo"`
	SeenBy      []Receipt           `json:"seenBy" bson:"seenBy"`
}

// File is an uploaded attachment; storage of the bytes lives elsewhere.
type File struct {
	Type     string `json:"type" bson:"type"`
	Filename string `json:"filename" bson:"filename"`
	URL      string `json:"url" bson:"url"`
	Size     int64  `json:"size,omitempty" bson:"size,omitempty"`
}

type SentTo struct {
	ChatID primitive.ObjectID `json:"chatId" bson:"chatId"`
	At     time.Time          `json:"at" bson:"at"`
}

// Receipt is one entry of deliveredTo or seenBy
type Receipt struct {
	RecipientID primitive.ObjectID `json:"recipientId" bson:"recipientId"`
	At          time.Time          `json:"at" bson:"at"`
}

// DeliveredAt returns the delivery receipt of recipient, if any.
func (m *Message) DeliveredAt(recipient primitive.ObjectID) (time.Time, bool) {
	return findReceipt(m.DeliveredTo, recipient)
}

// SeenAt returns the seen receipt of recipient, if any.
func (m *Message) SeenAt(recipient primitive.ObjectID) (time.Time, bool) {
	return findReceipt(m.SeenBy, recipient)
}

func (m *Message) IsDeliveredTo(recipient primitive.ObjectID) bool {
	_, ok := m.DeliveredAt(recipient)
	return ok
}

func (m *Message) IsSeenBy(recipient primitive.ObjectID) bool {
	_, ok := m.SeenAt(recipient)
	return ok
}

func findReceipt(receipts []Receipt, recipient primitive.ObjectID) (time.Time, bool) {
	for _, r := range receipts {
		if r.RecipientID == recipient {
			return r.At, true
		}
	}
	return time.Time{}, false
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	m.DeliveredTo = cloneReceipts(m.DeliveredTo)
	m.SeenBy = cloneReceipts(m.SeenBy)
	if m.File != nil {
		f := *m.File
		m.File = &f
	}
	return m
}

func cloneReceipts(receipts []Receipt) []Receipt {
	out := make([]Receipt, len(receipts))
	copy(out, receipts)
	return out
}
