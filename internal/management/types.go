// Package management implements the authenticated REST client against the
// Azure management plane and the TTL-cached statistics service built on
// top of it, per spec.md §4.6/§4.7. Grounded on
// Chris-Alexander-Pop-microservices-library/pkg/client/rest's retryablehttp
// usage (internal/httpclient) for the transport, and
// glebteterin-go-azurequeue/client.go's REST-against-Service-Bus response
// parsing conventions for the JSON surface.
package management

import "time"

// Subscription is one entry from GET /subscriptions.
type Subscription struct {
	ID             string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
}

// ResourceGroup is one entry from GET /subscriptions/{sub}/resourcegroups.
type ResourceGroup struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Namespace is one entry from the Service Bus namespaces list.
type Namespace struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type listResponse[T any] struct {
	Value []T `json:"value"`
}

// authorizationRuleKeys mirrors the listKeys response body.
type authorizationRuleKeys struct {
	PrimaryConnectionString   string `json:"primaryConnectionString"`
	SecondaryConnectionString string `json:"secondaryConnectionString"`
}

// queueDescription mirrors the subset of the queue GET response this
// client reads: CountDetails carries active and dead-letter message
// counts.
type queueDescription struct {
	Properties struct {
		CountDetails struct {
			ActiveMessageCount     int64 `json:"activeMessageCount"`
			DeadLetterMessageCount int64 `json:"deadLetterMessageCount"`
		} `json:"countDetails"`
	} `json:"properties"`
}

// QueueCounts groups a queue's active and dead-letter counts with the time
// they were fetched. GetQueueCounts does not return it; it returns the two
// counts as separate values.
type QueueCounts struct {
	Active     int64
	DeadLetter int64
	FetchedAt  time.Time
}
