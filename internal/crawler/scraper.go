package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/appium"
)

// PageScraper copies the descriptor and text of every element on the current
// screen into the data sink.
type PageScraper struct {
	locator appium.Locator
	rec     *recorder
	logger  *zap.Logger
}

// NewPageScraper builds a scraper that enumerates elements matching locator.
func NewPageScraper(locator appium.Locator, records RecordWriter, logger *zap.Logger) *PageScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageScraper{
		locator: locator,
		rec:     &recorder{w: records, logger: logger},
		logger:  logger,
	}
}

// Scrape writes one record per readable element and returns how many were
// written. Stale elements are skipped individually. Backend failures end the
// scrape early but are not returned; only sink failures are.
func (p *PageScraper) Scrape(ctx context.Context, sess Session) (int, error) {
	p.logger.Info("collecting contents of the current page")
	elements, err := sess.FindElements(ctx, p.locator)
	if err != nil {
		p.logger.Error("error collecting page contents", zap.Error(err))
		return 0, nil
	}

	written := 0
	for i, el := range elements {
		desc, text, err := readElement(ctx, el)
		if err != nil {
			if appium.IsStaleElement(err) {
				p.logger.Warn("stale element on current page, skipping it", zap.Int("element", i))
				continue
			}
			p.logger.Error("error collecting page contents", zap.Int("element", i), zap.Error(err))
			return written, nil
		}
		if err := p.rec.emit(ElementRecord(desc, text)); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func readElement(ctx context.Context, el Element) (string, string, error) {
	desc, err := el.Attribute(ctx, "content-desc")
	if err != nil {
		return "", "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", "", err
	}
	return desc, text, nil
}
