package platform

import "strconv"

// EResult is the platform's generic result code.
type EResult int

const (
	ResultInvalid            EResult = 0
	ResultOK                 EResult = 1
	ResultFail               EResult = 2
	ResultNoConnection       EResult = 3
	ResultInvalidPassword    EResult = 5
	ResultLoggedInElsewhere  EResult = 6
	ResultFileNotFound       EResult = 9
	ResultBusy               EResult = 10
	ResultAccessDenied       EResult = 15
	ResultTimeout            EResult = 16
	ResultBanned             EResult = 17
	ResultServiceUnavailable EResult = 20
	ResultExpired            EResult = 27
	ResultRateLimitExceeded  EResult = 84
)

var resultNames = map[EResult]string{
	ResultInvalid:            "Invalid",
	ResultOK:                 "OK",
	ResultFail:               "Fail",
	ResultNoConnection:       "NoConnection",
	ResultInvalidPassword:    "InvalidPassword",
	ResultLoggedInElsewhere:  "LoggedInElsewhere",
	ResultFileNotFound:       "FileNotFound",
	ResultBusy:               "Busy",
	ResultAccessDenied:       "AccessDenied",
	ResultTimeout:            "Timeout",
	ResultBanned:             "Banned",
	ResultServiceUnavailable: "ServiceUnavailable",
	ResultExpired:            "Expired",
	ResultRateLimitExceeded:  "RateLimitExceeded",
}

func (r EResult) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "EResult(" + strconv.Itoa(int(r)) + ")"
}
