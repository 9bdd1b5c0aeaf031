package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pratikpatil/academy-fees/core/fees"
)

type feesApi struct {
	svc *fees.Service
}

func registerFeesAPI(g *echo.Group, svc *fees.Service) {
	api := feesApi{svc: svc}

	sg := g.Group("/fee-structures")
	sg.GET("", api.structureQuery)
	sg.PUT("", api.structureUpsert)

	stg := g.Group("/students/:id")
	stg.GET("/ledger", api.ledgerRetrieve)
	stg.POST("/payments", api.paymentCreate)
	stg.POST("/receipts/resend", api.receiptResendAll)

	g.POST("/installments/:id/receipt/resend", api.receiptResend)
}

// Handlers

func (api *feesApi) structureQuery(ctx echo.Context) error {
	structures, err := api.svc.QueryStructures(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	return ctx.JSON(http.StatusOK, structures)
}

func (api *feesApi) structureUpsert(ctx echo.Context) error {
	var data fees.NewFeeStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeStructure")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	fs, err := api.svc.UpsertStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting fee structure")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *feesApi) ledgerRetrieve(ctx echo.Context) error {
	view, err := api.svc.GetLedger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *feesApi) paymentCreate(ctx echo.Context) error {
	var data fees.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	data.StudentID = ctx.Param("id")

	res, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *feesApi) receiptResend(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid installment id")
	}
	if err := api.svc.ResendReceipt(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *feesApi) receiptResendAll(ctx echo.Context) error {
	deliveries, err := api.svc.ResendAllReceipts(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, deliveries)
}
