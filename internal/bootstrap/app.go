package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/grid_export_service/internal/config"
	"github.com/locvowork/grid_export_service/internal/database"
	"github.com/locvowork/grid_export_service/internal/domain"
	"github.com/locvowork/grid_export_service/internal/handler"
	"github.com/locvowork/grid_export_service/internal/history"
	"github.com/locvowork/grid_export_service/internal/logger"
	"github.com/locvowork/grid_export_service/internal/repository"
	"github.com/locvowork/grid_export_service/internal/service"
	"github.com/locvowork/grid_export_service/pkg/gridexport"
	"github.com/olivere/elastic/v7"
)

const activityIndex = "activity_log"

type App struct {
	Echo    *echo.Echo
	DB      *sql.DB
	ES      *elastic.Client
	History *history.Store
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}

	// Initialize logging
	logger.InitLogging(config.DefaultEnvConfig.LOG_FILE_PATH)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	// Initialize database connection
	dbConfig := database.Config{
		Host:            config.DefaultEnvConfig.DB_HOST,
		Port:            config.DefaultEnvConfig.DB_PORT,
		User:            config.DefaultEnvConfig.DB_USER,
		Password:        config.DefaultEnvConfig.DB_PASSWORD,
		DBName:          config.DefaultEnvConfig.DB_NAME,
		SSLMode:         config.DefaultEnvConfig.DB_SSL_MODE,
		MaxOpenConns:    config.DefaultEnvConfig.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    config.DefaultEnvConfig.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: config.DefaultEnvConfig.DB_CONN_MAX_LIFETIME,
	}

	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	// Export defaults come from the environment; an optional YAML file
	// refines them further.
	settings := gridexport.DefaultSettings()
	settings.Folder = config.DefaultEnvConfig.EXPORT_FOLDER
	settings.LinkPath = config.DefaultEnvConfig.EXPORT_LINK_PATH
	settings.Stream = config.DefaultEnvConfig.EXPORT_STREAM
	settings.DeleteAfterSave = config.DefaultEnvConfig.EXPORT_DELETE_AFTER_SAVE
	settings.BatchSize = config.DefaultEnvConfig.EXPORT_BATCH_SIZE
	if path := config.DefaultEnvConfig.EXPORT_CONFIG_FILE; path != "" {
		settings, err = gridexport.LoadMenuFile(path, settings)
		if err != nil {
			return fmt.Errorf("failed to load export config %s: %w", path, err)
		}
	}

	// Initialize the export history store (optional)
	if projectID := config.DefaultEnvConfig.GCP_PROJECT_ID; projectID != "" {
		hist, err := history.NewStore(ctx, projectID)
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize export history store: %v", err)
		}
		a.History = hist
	}

	// Initialize the Elasticsearch client (optional)
	if url := config.DefaultEnvConfig.ES_URL; url != "" {
		es, err := elastic.NewClient(elastic.SetURL(url), elastic.SetSniff(false))
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize elasticsearch client: %v", err)
		}
		a.ES = es
	}

	// Initialize dependencies
	svc := service.NewExportService(settings, a.History)
	if err := a.registerGrids(svc); err != nil {
		return fmt.Errorf("failed to register grids: %w", err)
	}
	exportHandler := handler.NewExportHandler(svc,
		config.DefaultEnvConfig.EXPORT_FOLDER,
		config.DefaultEnvConfig.EXPORT_DELETE_AFTER_SAVE)

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(exportHandler)

	return nil
}

func (a *App) registerGrids(svc service.ExportService) error {
	empRepo := repository.NewEmployeeRepository(a.DB)
	err := svc.Register(service.Source{
		Grid: gridexport.Grid{
			Name:  "employees",
			Title: "Employees",
			Columns: []gridexport.Column{
				{Field: "emp_no", Label: "Employee #", Type: gridexport.TypeNumber, FooterAgg: "count"},
				{Field: "first_name"},
				{Field: "last_name"},
				{Field: "gender", Formatter: genderLabel},
				{Field: "birth_date", Type: gridexport.TypeDate, HiddenFromExport: true},
				{Field: "hire_date", Type: gridexport.TypeDate},
				{Field: "dept_name", Label: "Department", Group: true},
				{Field: "salary", Type: gridexport.TypeNumber, FooterAgg: "avg", Width: 14},
			},
		},
		NewProvider: func(ctx context.Context) (gridexport.RowProvider, error) {
			return empRepo.Provider(), nil
		},
	})
	if err != nil {
		return err
	}

	deptProvider, err := gridexport.NewSliceProvider(departmentSeed)
	if err != nil {
		return fmt.Errorf("build department rows: %w", err)
	}
	err = svc.Register(service.Source{
		Grid: gridexport.Grid{
			Name:  "departments",
			Title: "Departments",
			Columns: []gridexport.Column{
				{Field: "DeptNo", Label: "Dept #"},
				{Field: "DeptName"},
				{Field: "Headcount", Type: gridexport.TypeNumber, FooterAgg: "sum"},
				{Field: "Manager"},
			},
		},
		NewProvider: func(ctx context.Context) (gridexport.RowProvider, error) {
			return deptProvider, nil
		},
	})
	if err != nil {
		return err
	}

	if a.ES != nil {
		actRepo := repository.NewActivityRepository(a.ES, activityIndex)
		err = svc.Register(service.Source{
			Grid: gridexport.Grid{
				Name:  "activity",
				Title: "Activity Log",
				Columns: []gridexport.Column{
					{Field: "timestamp", Type: gridexport.TypeDate},
					{Field: "actor"},
					{Field: "action"},
					{Field: "entity"},
					{Field: "detail", Width: 40},
				},
			},
			NewProvider: func(ctx context.Context) (gridexport.RowProvider, error) {
				return actRepo.Provider(), nil
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// departmentSeed backs the departments grid. The classic employees sample
// database ships these nine departments.
var departmentSeed = []domain.Department{
	{DeptNo: "d001", DeptName: "Marketing", Headcount: 14842, Manager: "Margareta Markovitch"},
	{DeptNo: "d002", DeptName: "Finance", Headcount: 12437, Manager: "Isamu Legleitner"},
	{DeptNo: "d003", DeptName: "Human Resources", Headcount: 12898, Manager: "Karsten Sigstam"},
	{DeptNo: "d004", DeptName: "Production", Headcount: 53304, Manager: "Oscar Ghazalie"},
	{DeptNo: "d005", DeptName: "Development", Headcount: 61386, Manager: "Leon DasSarma"},
	{DeptNo: "d006", DeptName: "Quality Management", Headcount: 14546, Manager: "Dung Pesch"},
	{DeptNo: "d007", DeptName: "Sales", Headcount: 37701, Manager: "Hauke Zhang"},
	{DeptNo: "d008", DeptName: "Research", Headcount: 15441, Manager: "Hilary Kambil"},
	{DeptNo: "d009", DeptName: "Customer Service", Headcount: 17569, Manager: "Yuchang Weedman"},
}

func genderLabel(v interface{}) interface{} {
	switch v {
	case "M":
		return "Male"
	case "F":
		return "Female"
	}
	return v
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(exportHandler *handler.ExportHandler) {
	api := a.Echo.Group("/api/v1")
	api.GET("/grids", exportHandler.ListGridsHandler)
	api.GET("/grids/:name/export/menu", exportHandler.MenuHandler)
	api.POST("/grids/:name/export", exportHandler.ExportHandler)
	api.POST("/grids/:name/export/bundle", exportHandler.BundleHandler)
	api.GET("/exports/files/:name", exportHandler.DownloadHandler)

	if a.History != nil {
		api.GET("/exports/history", exportHandler.HistoryHandler)
	}
}

func (a *App) Run() error {
	defer a.DB.Close()
	if a.History != nil {
		defer a.History.Close()
	}
	if a.ES != nil {
		defer a.ES.Stop()
	}
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
