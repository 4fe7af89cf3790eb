package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/textproc"
)

// GetStopwordsHandler returns the default stopword list
func GetStopwordsHandler(c echo.Context) error {
	type stopwordsResponse struct {
		Stopwords []string `json:"stopwords"`
	}

	return c.JSON(http.StatusOK, stopwordsResponse{
		Stopwords: textproc.DefaultStopwords(),
	})
}
