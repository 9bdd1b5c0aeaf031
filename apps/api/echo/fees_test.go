package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratikpatil/academy-fees/core"
	"github.com/pratikpatil/academy-fees/core/fees"
	"github.com/pratikpatil/academy-fees/core/student"
	emailsvc "github.com/pratikpatil/academy-fees/services/email"
	logsvc "github.com/pratikpatil/academy-fees/services/logger"
	dummydb "github.com/pratikpatil/academy-fees/storage/database/dummy"
)

type testDirectory interface {
	student.Directory
	AddStudent(stu student.Student)
}

func setupServer(t *testing.T) (Server, testDirectory) {
	// deterministic error payloads: debug mode echoes raw error strings
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupServer() failed: %v", err)
	}
	dir := dummydb.NewStudentDirectory(db)
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	svc := fees.NewService(
		dummydb.NewFeesRepository(db),
		dummydb.NewSequences(db),
		dir,
		emailsvc.NewDummyService(),
		logger,
	)

	srv := NewServer(&Options{
		Address:        "127.0.0.1:0",
		DisableReqLogs: true,
		FeesSvc:        svc,
		Logger:         logger,
	})
	return srv, dir
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestFeesAPI_structures(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/v1/fee-structures", echo.Map{
		"standard":      "11",
		"academic_year": "2025-2026",
		"total_fee":     15000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fs fees.FeeStructure
	decodeJSON(t, rec, &fs)
	assert.Equal(t, "11", fs.Standard)
	assert.Equal(t, int64(15000), fs.TotalFee)

	rec = doRequest(t, srv, http.MethodGet, "/v1/fee-structures", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var structures []fees.FeeStructure
	decodeJSON(t, rec, &structures)
	assert.Len(t, structures, 1)

	// malformed academic year is a field-level rejection
	rec = doRequest(t, srv, http.MethodPut, "/v1/fee-structures", echo.Map{
		"standard":      "11",
		"academic_year": "2025",
		"total_fee":     15000,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var fldErrs map[string]string
	decodeJSON(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "academic_year")
}

func TestFeesAPI_paymentCreate(t *testing.T) {
	srv, dir := setupServer(t)
	dir.AddStudent(student.Student{ID: "S-1", Name: "Asha", Standard: "11", Email: "asha@test.test"})

	rec := doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount":             5000,
		"payment_mode":       "cash",
		"total_fee_override": 15000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res fees.PaymentResult
	decodeJSON(t, rec, &res)
	assert.True(t, res.EmailSent)
	assert.Equal(t, 1, res.Installment.PaymentNumber)
	assert.Regexp(t, `^RCT\d{6}$`, res.Installment.ReceiptNumber)
	assert.Regexp(t, `^FEE\d{6}$`, res.Ledger.ReceiptNumber)
	assert.Equal(t, int64(10000), res.Ledger.RemainingAmount)
	assert.Equal(t, fees.StatusPartiallyPaid, res.Ledger.Status)
}

func TestFeesAPI_paymentCreate_rejections(t *testing.T) {
	srv, dir := setupServer(t)
	dir.AddStudent(student.Student{ID: "S-1", Name: "Asha", Standard: "11", Email: "asha@test.test"})
	dir.AddStudent(student.Student{ID: "S-2", Name: "Vikram", Standard: "11"}) // no email

	// unknown student
	rec := doRequest(t, srv, http.MethodPost, "/v1/students/nope/payments", echo.Map{
		"amount": 5000, "payment_mode": "cash", "total_fee_override": 15000,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// missing contact email
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-2/payments", echo.Map{
		"amount": 5000, "payment_mode": "cash", "total_fee_override": 15000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp map[string]string
	decodeJSON(t, rec, &errResp)
	assert.Contains(t, errResp["error"], "contact email")

	// invalid amount and mode come back as field errors
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 0, "payment_mode": "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fldErrs map[string]string
	decodeJSON(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "amount")
	assert.Contains(t, fldErrs, "payment_mode")

	// no structure, no override
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 5000, "payment_mode": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// overpayment carries the remaining amount
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 10000, "payment_mode": "cash", "total_fee_override": 15000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 6000, "payment_mode": "upi",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var exceeds map[string]interface{}
	decodeJSON(t, rec, &exceeds)
	assert.Equal(t, float64(5000), exceeds["remaining_amount"])

	// settle, then further payments conflict
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 5000, "payment_mode": "upi",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 1, "payment_mode": "cash",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFeesAPI_ledgerRetrieve(t *testing.T) {
	srv, dir := setupServer(t)
	dir.AddStudent(student.Student{ID: "S-1", Name: "Asha", Standard: "11", Email: "asha@test.test"})

	rec := doRequest(t, srv, http.MethodGet, "/v1/students/S-1/ledger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 5000, "payment_mode": "cash", "total_fee_override": 15000,
	})
	doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 3000, "payment_mode": "card",
	})

	rec = doRequest(t, srv, http.MethodGet, "/v1/students/S-1/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view fees.LedgerView
	decodeJSON(t, rec, &view)
	assert.Equal(t, int64(8000), view.TotalPaid)
	assert.Equal(t, int64(7000), view.RemainingAmount)
	assert.Equal(t, fees.StatusPartiallyPaid, view.Status)
	require.Len(t, view.Installments, 2)
	assert.Equal(t, 1, view.Installments[0].PaymentNumber)
	assert.Equal(t, 2, view.Installments[1].PaymentNumber)
	assert.WithinDuration(t, time.Now(), view.ReceiptDate, time.Minute)
}

func TestFeesAPI_receiptResend(t *testing.T) {
	srv, dir := setupServer(t)
	dir.AddStudent(student.Student{ID: "S-1", Name: "Asha", Standard: "11", Email: "asha@test.test"})

	rec := doRequest(t, srv, http.MethodPost, "/v1/installments/not-a-uuid/receipt/resend", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1/installments/6b1b64b9-9f0e-4f26-9d28-5a5bbd2a1f30/receipt/resend", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/payments", echo.Map{
		"amount": 5000, "payment_mode": "cash", "total_fee_override": 15000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var res fees.PaymentResult
	decodeJSON(t, rec, &res)

	rec = doRequest(t, srv, http.MethodPost, "/v1/installments/"+res.Installment.ID.String()+"/receipt/resend", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1/students/S-1/receipts/resend", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deliveries []fees.ReceiptDelivery
	decodeJSON(t, rec, &deliveries)
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Sent)
	assert.Equal(t, res.Installment.ReceiptNumber, deliveries[0].ReceiptNumber)

	rec = doRequest(t, srv, http.MethodPost, "/v1/students/nope/receipts/resend", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
