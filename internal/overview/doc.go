// Package overview implements the fetch-and-compose pipeline that turns a
// set of remote site cameras and weather plots into one annotated grid image
// of the Roque de los Muchachos observatory.
package overview
