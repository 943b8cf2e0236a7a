package board

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	b := rg.Group("/board")
	b.POST("/add", handler.Add)
	b.GET("/list", handler.List)
	b.GET("/latest", handler.GetLatestBoards)
	b.GET("/popular", handler.GetPopularBoards)
	b.GET("/topLikedImages", handler.GetTopLikedImages)
	b.GET("/guide", handler.GetGuideBoards)
	b.PUT("/edit", handler.Edit)
	b.PUT("/like", handler.Like)
	b.POST("/report", handler.Report)
	b.GET("/report/list", handler.ReportList)
	b.GET("/report/list/content", handler.ReportContent)
	b.DELETE("/delete", handler.DeleteMultiple)
	b.GET("/:id", handler.Get)
	b.DELETE("/:id", handler.Delete)
}
