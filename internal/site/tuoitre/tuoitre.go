// Package tuoitre extracts menus, article listings and article engagement from tuoitre.vn.
package tuoitre

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
	"github.com/JakeFAU/newsrank-crawler/internal/site/markup"
)

// Site identity.
const (
	Homepage = "https://tuoitre.vn"
	Slug     = "tuoitre"
)

const (
	menuSelector      = "ul[class='menu-nav'] a[href]"
	subMenuSelector   = "ul[class*='sub-category'] a[href]"
	containerSelector = "div[class*='box-category-item'], div[class*='box-sub-item'], div[class*='box-category-content']"
	titleLinkSelector = "a[class*='box-category-link-title'][href]"
	commentSelector   = "div[class*='ico-data-type type-data-comment box-category-comment']"

	dateXPath  = "//div[@data-role='publishdate']"
	likesXPath = "//div[contains(@class,'totalreact')]//span[contains(@class,'total')]"

	// Publish dates read like "17/10/2024 09:30 GMT+7".
	dateLayout = "02/01/2006 15:04 GMT+7"
)

var publishZone = time.FixedZone("GMT+7", 7*60*60)

// Adapter implements crawler.SiteAdapter for Tuoi Tre.
type Adapter struct {
	logger *zap.Logger
}

// New returns a Tuoi Tre adapter.
func New(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger.Named("tuoitre")}
}

// Site describes the portal.
func (a *Adapter) Site() crawler.Site {
	return crawler.Site{ID: Homepage, Slug: Slug}
}

// MenuLinks returns the main navigation links.
func (a *Adapter) MenuLinks(homepageHTML string) []string {
	return markup.Links(markup.Document(homepageHTML).Selection, menuSelector, Homepage)
}

// SubMenuLinks returns the sub-category links on a menu page.
func (a *Adapter) SubMenuLinks(menuHTML string, menuURL string) []string {
	return markup.Links(markup.Document(menuHTML).Selection, subMenuSelector, menuURL)
}

// ArticleStubs returns the listing's commented articles. Nested boxes repeat
// the same link, so each URL is emitted once.
func (a *Adapter) ArticleStubs(listingHTML string) []crawler.ArticleStub {
	var stubs []crawler.ArticleStub
	seen := make(map[string]struct{})
	markup.Document(listingHTML).Find(containerSelector).Each(func(_ int, s *goquery.Selection) {
		link := s.Find(titleLinkSelector).First()
		href, _ := link.Attr("href")
		title := markup.Text(link)
		if href == "" || title == "" || s.Find(commentSelector).Length() == 0 {
			metrics.ObserveExtractionMiss(Homepage, "incomplete_container")
			a.logger.Debug("skipping article without comments", zap.String("title", title))
			return
		}
		articleURL, err := crawler.ResolveLink(Homepage, href)
		if err != nil {
			return
		}
		if _, dup := seen[articleURL]; dup {
			return
		}
		seen[articleURL] = struct{}{}
		stubs = append(stubs, crawler.ArticleStub{URL: articleURL, Title: title, HasEngagement: true})
	})
	return stubs
}

// ExtractArticle reads the publish date and summed reaction totals.
func (a *Adapter) ExtractArticle(articleHTML string, rawURL string, title string) (crawler.Article, bool) {
	root, err := markup.Tree(articleHTML)
	if err != nil {
		a.miss("unparsable_html", rawURL)
		return crawler.Article{}, false
	}
	dateText, ok := markup.FirstText(root, dateXPath)
	if !ok {
		a.miss("no_date", rawURL)
		return crawler.Article{}, false
	}
	published, ok := markup.ParseDate(dateText, []string{dateLayout}, publishZone)
	if !ok {
		a.logger.Debug("failed to parse date", zap.String("url", rawURL), zap.String("date", dateText))
		a.miss("unparsable_date", rawURL)
		return crawler.Article{}, false
	}
	totals := markup.Texts(root, likesXPath)
	if len(totals) == 0 {
		a.miss("no_engagement", rawURL)
		return crawler.Article{}, false
	}
	return crawler.Article{
		Website:    Homepage,
		Title:      title,
		URL:        rawURL,
		TotalLikes: markup.SumCounts(totals),
		Date:       published,
	}, true
}

func (a *Adapter) miss(reason, rawURL string) {
	metrics.ObserveExtractionMiss(Homepage, reason)
	a.logger.Debug("article does not qualify", zap.String("reason", reason), zap.String("url", rawURL))
}
