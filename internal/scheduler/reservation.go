package scheduler

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/utils"
)

// reservationTimeLayout is the qrstat timestamp format (MM/DD/YYYY HH:MM:SS).
const reservationTimeLayout = "01/02/2006 15:04:05"

// Reservation holds the fields of a Grid Engine advance reservation used for sizing a job.
type Reservation struct {
	ID          string
	End         time.Time
	Hostname    string        // hostname= from the resource list
	VirtualFree string        // virtual_free= from the resource list, kept verbatim (e.g. "4G")
	Walltime    time.Duration // h_rt= from the resource list
	Cores       int           // slots from granted_parallel_environment
}

// QueryReservation runs "qrstat -ar <id>" and parses the listing.
func QueryReservation(ctx context.Context, runner command.Runner, qrstatBin, id string, loc *time.Location) (*Reservation, error) {
	out, err := runner.Run(ctx, qrstatBin, "-ar", id)
	if err != nil {
		var ece *command.ExternalCommandError
		if errors.As(err, &ece) && !ece.TimedOut && mentionsMissing(ece.Output) {
			return nil, &ReservationNotFoundError{ID: id}
		}
		return nil, err
	}
	if mentionsMissing(out) {
		return nil, &ReservationNotFoundError{ID: id}
	}
	return ParseReservation(id, out, loc)
}

func mentionsMissing(out string) bool {
	out = strings.ToLower(out)
	return strings.Contains(out, "does not exist") || strings.Contains(out, "do not exist")
}

// ParseReservation parses qrstat -ar output:
//
//	id                             42
//	end_time                       07/19/2016 10:00:00
//	resource_list                  hostname=node01,virtual_free=4G,h_rt=24:00:00
//	granted_parallel_environment   smp slots 8
//
// Every field listed above is required.
func ParseReservation(id, output string, loc *time.Location) (*Reservation, error) {
	if loc == nil {
		loc = time.Local
	}
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "---") {
			continue
		}
		key, value := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			key, value = line[:i], line[i+1:]
		}
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if _, ok := fields["id"]; !ok {
		return nil, &ReservationNotFoundError{ID: id}
	}

	res := &Reservation{ID: id}

	end, ok := fields["end_time"]
	if !ok || end == "" {
		return nil, &ReservationFormatError{ID: id, Field: "end_time", Reason: "missing"}
	}
	t, err := time.ParseInLocation(reservationTimeLayout, end, loc)
	if err != nil {
		return nil, &ReservationFormatError{ID: id, Field: "end_time", Reason: "expected MM/DD/YYYY HH:MM:SS, got " + strconv.Quote(end)}
	}
	res.End = t

	resources := parseResourceList(fields["resource_list"])
	if res.Hostname = resources["hostname"]; res.Hostname == "" {
		return nil, &ReservationFormatError{ID: id, Field: "hostname", Reason: "missing from resource_list"}
	}
	if res.VirtualFree = resources["virtual_free"]; res.VirtualFree == "" {
		return nil, &ReservationFormatError{ID: id, Field: "virtual_free", Reason: "missing from resource_list"}
	}
	hrt, ok := resources["h_rt"]
	if !ok || hrt == "" {
		return nil, &ReservationFormatError{ID: id, Field: "h_rt", Reason: "missing from resource_list"}
	}
	if res.Walltime, err = parseHrt(hrt); err != nil {
		return nil, &ReservationFormatError{ID: id, Field: "h_rt", Reason: err.Error()}
	}

	pe := strings.Fields(fields["granted_parallel_environment"])
	if len(pe) == 0 {
		return nil, &ReservationFormatError{ID: id, Field: "granted_parallel_environment", Reason: "missing"}
	}
	cores, err := strconv.Atoi(pe[len(pe)-1])
	if err != nil || cores <= 0 {
		return nil, &ReservationFormatError{ID: id, Field: "granted_parallel_environment", Reason: "no core count in " + strconv.Quote(fields["granted_parallel_environment"])}
	}
	res.Cores = cores

	utils.PrintDebug("Reservation %s: end=%s host=%s vf=%s h_rt=%s cores=%d",
		id, res.End.Format(reservationTimeLayout), res.Hostname, res.VirtualFree, FormatWalltime(res.Walltime), res.Cores)
	return res, nil
}

// parseResourceList splits "a=1,b=2" (commas or whitespace) into a map.
func parseResourceList(list string) map[string]string {
	out := make(map[string]string)
	tokens := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, tok := range tokens {
		if k, v, ok := strings.Cut(tok, "="); ok {
			out[k] = v
		}
	}
	return out
}

// parseHrt accepts h_rt either as HH:MM:SS or as plain seconds.
func parseHrt(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return ParseWalltime(s)
}
