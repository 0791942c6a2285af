// Package statement renders profit distribution statements as PDF.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Distributions distributiondomain.Service
	Pitches       pitchdomain.Service
}

type Service struct {
	log           *zap.Logger
	distributions distributiondomain.Service
	pitches       pitchdomain.Service
}

var Module = fx.Module("statement",
	fx.Provide(New),
)

func New(p Params) *Service {
	return &Service{
		log:           p.Log.Named("statement.service"),
		distributions: p.Distributions,
		pitches:       p.Pitches,
	}
}

// Statement renders the distribution visible to the requester. Investors only
// see their own payout line.
func (s *Service) Statement(ctx context.Context, req distributiondomain.GetRequest) ([]byte, string, error) {
	detail, err := s.distributions.Get(ctx, req)
	if err != nil {
		return nil, "", err
	}
	pitch, err := s.pitches.Get(ctx, detail.Distribution.PitchID.String())
	if err != nil {
		return nil, "", err
	}

	doc, err := Render(Data{PitchTitle: pitch.Title, Detail: detail})
	if err != nil {
		s.log.Warn("failed to render statement",
			zap.String("distribution_id", detail.Distribution.ID.String()),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("%w: %v", distributiondomain.ErrStatementUnavailable, err)
	}
	return doc, fmt.Sprintf("distribution-%s.pdf", detail.Distribution.ID.String()), nil
}

type Data struct {
	PitchTitle string
	Detail     distributiondomain.Detail
}

func Render(data Data) ([]byte, error) {
	d := data.Detail.Distribution

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Profit distribution statement", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Pitch: "+data.PitchTitle, props.Text{Top: 0}),
			text.New("Distribution: "+d.ID.String(), props.Text{Top: 5}),
			text.New("Date: "+d.DistributionDate.UTC().Format(time.RFC1123), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Declared profit: "+Money(d.TotalProfit), props.Text{Top: 0, Align: align.Right}),
			text.New("Profit share: "+d.ProfitShare.StringFixed(2)+"%", props.Text{Top: 5, Align: align.Right}),
			text.New("Investor pool: "+Money(d.InvestorPool), props.Text{Top: 10, Align: align.Right}),
			text.New("Business retained: "+Money(d.BusinessProfit), props.Text{Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(5, "Investor", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Weighted amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Share", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Payout", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	var total int64
	for _, p := range data.Detail.Payouts {
		m.AddRow(8,
			text.NewCol(5, p.InvestorID.String(), props.Text{Size: 9}),
			text.NewCol(3, p.WeightedAmount.Div(decimal.NewFromInt(100)).StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, p.Percentage.StringFixed(2)+"%", props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Money(p.Amount), props.Text{Size: 9, Align: align.Right}),
		)
		total += p.Amount
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total paid", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, Money(total), props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// Money formats cents as a two-decimal amount.
func Money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
