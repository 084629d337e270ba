// Package events publishes sync notifications to RabbitMQ.
//
// Every message goes to one durable queue. The topic
// (calendar.sync.completed, booking.unassigned) travels in the AMQP type
// property so consumers can filter without decoding the body. Bodies are
// JSON and marked persistent.
package events
