/*
Package qrng is a client for a remote hardware random number service.

The service is queried with a plain GET request and answers with a JSON payload:

	{"type":"uint8","length":4,"size":1,"data":[23,255,0,17],"success":true}

A client call issues exactly one request and either returns exactly the
requested amount of entropy units or fails. Retries are left to the caller,
which can use IsRetryable to decide. Plan splits a larger amount into requests
that respect the service limits.
*/
package qrng
