package models

import "net/http"

// Route is where a queue entry is submitted on the remote authority.
type Route struct {
	Method string
	Path   string
}

// basePaths maps each replicated collection to its remote resource.
var basePaths = map[Collection]string{
	CollectionVaccinations:   "/records",
	CollectionMedicalHistory: "/medical-history",
	CollectionSharedRecords:  "/shared-records",
}

// supported lists the remote operations that exist per collection.
var supported = map[Collection]map[Action]bool{
	CollectionVaccinations:   {ActionCreate: true, ActionUpdate: true, ActionDelete: true},
	CollectionMedicalHistory: {ActionCreate: true, ActionUpdate: true},
	CollectionSharedRecords:  {ActionCreate: true, ActionDelete: true},
}

// RouteFor resolves (collection, action) to a remote endpoint: update is a
// PUT, delete is a DELETE and anything else a POST on the collection's base
// path. ok is false when the remote has no such operation.
func RouteFor(c Collection, a Action) (Route, bool) {
	if !supported[c][a] {
		return Route{}, false
	}

	method := http.MethodPost
	switch a {
	case ActionUpdate:
		method = http.MethodPut
	case ActionDelete:
		method = http.MethodDelete
	}
	return Route{Method: method, Path: basePaths[c]}, true
}
