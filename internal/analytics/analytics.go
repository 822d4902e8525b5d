// Package analytics computes the super-admin dashboard figures from the raw
// user and query listings.
package analytics

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/model"
)

// DayLayout formats the day a response time is plotted against.
const DayLayout = "2006-01-02"

// Load fetches users and queries in parallel and summarizes them.
func Load(ctx context.Context, client *directory.Client) (*model.AnalyticsReport, error) {
	var (
		users   []model.User
		queries []model.Query
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = client.AllUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		queries, err = client.MyQueries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Summarize(users, queries), nil
}

func Summarize(users []model.User, queries []model.Query) *model.AnalyticsReport {
	report := &model.AnalyticsReport{
		TotalUsers:    len(users),
		TotalQueries:  len(queries),
		QueryTypes:    []model.TypeCount{},
		ResponseTimes: []model.ResponseTime{},
	}

	teams := make(map[string]struct{})
	typeIndex := make(map[string]int)
	for i := range queries {
		q := &queries[i]
		for _, tag := range q.Tags {
			teams[tag] = struct{}{}
		}

		kind := q.FirstTag()
		if idx, ok := typeIndex[kind]; ok {
			report.QueryTypes[idx].Value++
		} else {
			typeIndex[kind] = len(report.QueryTypes)
			report.QueryTypes = append(report.QueryTypes, model.TypeCount{Name: kind, Value: 1})
		}

		if rt, ok := firstResponse(q); ok {
			report.ResponseTimes = append(report.ResponseTimes, rt)
		}
	}
	report.TotalTeams = len(teams)
	return report
}

// firstResponse measures the time to the first staff message, in hours
// rounded to two decimals.
func firstResponse(q *model.Query) (model.ResponseTime, bool) {
	for _, m := range q.Messages {
		if m == nil || m.Role != model.RoleStaff {
			continue
		}
		hours := m.Time.Sub(q.SubmittedAt).Hours()
		return model.ResponseTime{
			Day:   q.SubmittedAt.Format(DayLayout),
			Hours: math.Round(hours*100) / 100,
		}, true
	}
	return model.ResponseTime{}, false
}

// AverageResponse is the mean of the measured response times, zero when
// nothing was measured.
func AverageResponse(report *model.AnalyticsReport) time.Duration {
	if len(report.ResponseTimes) == 0 {
		return 0
	}
	var total float64
	for _, rt := range report.ResponseTimes {
		total += rt.Hours
	}
	return time.Duration(total / float64(len(report.ResponseTimes)) * float64(time.Hour))
}
