// Package vnexpress extracts menus, article listings and article engagement from vnexpress.net.
package vnexpress

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
	Homepage = "https://vnexpress.net"
	Slug     = "vnexpress"
)

const (
	menuSelector      = "nav a[href]"
	subMenuSelector   = "ul[class='sub'] a[href]"
	containerSelector = "article"
	titleLinkSelector = "h3[class='title-news'] > a[href]"
	commentSelector   = "a[class='count_cmt'] span[class*='font_icon']"

	dateXPath  = "//span[contains(@class,'date')]"
	likesXPath = "//div[contains(@class,'reactions-total')]//a[@class='number']"
)

// Publish dates read like "Thứ năm, 17/10/2024, 09:30 (GMT+7)".
var (
	weekdays = []string{"Chủ nhật", "Thứ hai", "Thứ ba", "Thứ tư", "Thứ năm", "Thứ sáu", "Thứ bảy"}

	dateLayouts = func() []string {
		out := make([]string, 0, len(weekdays))
		for _, day := range weekdays {
			out = append(out, day+", 2/1/2006, 15:04 (GMT+7)")
		}
		return out
	}()

	publishZone = time.FixedZone("GMT+7", 7*60*60)
)

// Adapter implements crawler.SiteAdapter for VnExpress.
type Adapter struct {
	logger *zap.Logger
}

// New returns a VnExpress adapter.
func New(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger.Named("vnexpress")}
}

// Site describes the portal.
func (a *Adapter) Site() crawler.Site {
	return crawler.Site{ID: Homepage, Slug: Slug}
}

// MenuLinks returns the navigation links on the homepage.
func (a *Adapter) MenuLinks(homepageHTML string) []string {
	return markup.Links(markup.Document(homepageHTML).Selection, menuSelector, Homepage)
}

// SubMenuLinks returns the category links nested under a menu page.
func (a *Adapter) SubMenuLinks(menuHTML string, menuURL string) []string {
	return markup.Links(markup.Document(menuHTML).Selection, subMenuSelector, menuURL)
}

// ArticleStubs returns one stub per article block that carries both a title
// link and a comment counter.
func (a *Adapter) ArticleStubs(listingHTML string) []crawler.ArticleStub {
	var stubs []crawler.ArticleStub
	markup.Document(listingHTML).Find(containerSelector).Each(func(_ int, s *goquery.Selection) {
		link := s.Find(titleLinkSelector).First()
		title := markup.Text(link)
		if link.Length() == 0 || s.Find(commentSelector).Length() == 0 {
			metrics.ObserveExtractionMiss(Homepage, "incomplete_container")
			a.logger.Debug("skipping article without comments", zap.String("title", title))
			return
		}
		href, _ := link.Attr("href")
		articleURL, err := crawler.ResolveLink(Homepage, href)
		if err != nil {
			return
		}
		stubs = append(stubs, crawler.ArticleStub{URL: articleURL, Title: title, HasEngagement: true})
	})
	return stubs
}

// ExtractArticle reads the publish date and summed reaction counts.
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
	published, ok := markup.ParseDate(dateText, dateLayouts, publishZone)
	if !ok {
		a.logger.Debug("failed to parse date", zap.String("url", rawURL), zap.String("date", dateText))
		a.miss("unparsable_date", rawURL)
		return crawler.Article{}, false
	}
	likes := markup.Texts(root, likesXPath)
	if len(likes) == 0 {
		a.miss("no_engagement", rawURL)
		return crawler.Article{}, false
	}
	return crawler.Article{
		Website:    Homepage,
		Title:      title,
		URL:        rawURL,
		TotalLikes: markup.SumCounts(likes),
		Date:       published,
	}, true
}

func (a *Adapter) miss(reason, rawURL string) {
	metrics.ObserveExtractionMiss(Homepage, reason)
	a.logger.Debug("article does not qualify", zap.String("reason", reason), zap.String("url", rawURL))
}
