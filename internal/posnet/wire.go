package posnet

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// The gateway speaks Turkish ISO-8859-9 on the wire.
const xmlHeader = `<?xml version="1.0" encoding="ISO-8859-9"?>` + "\n"

type xmlRequest struct {
	XMLName        xml.Name           `xml:"posnetRequest"`
	MID            string             `xml:"mid"`
	TID            string             `xml:"tid"`
	Sale           *xmlCardTx         `xml:"sale,omitempty"`
	Auth           *xmlCardTx         `xml:"auth,omitempty"`
	Capt           *xmlCapt           `xml:"capt,omitempty"`
	Reverse        *xmlReverse        `xml:"reverse,omitempty"`
	Return         *xmlReturn         `xml:"return,omitempty"`
	PointInquiry   *xmlPointInquiry   `xml:"pointinquiry,omitempty"`
	Agreement      *xmlAgreement      `xml:"agreement,omitempty"`
	OOSRequestData *xmlOOSRequestData `xml:"oosRequestData,omitempty"`
	OOSResolve     *xmlOOSResolve     `xml:"oosResolveMerchantData,omitempty"`
	OOSTranData    *xmlOOSTranData    `xml:"oosTranData,omitempty"`
}

type xmlCardTx struct {
	Amount       int64  `xml:"amount"`
	CardNumber   string `xml:"ccno"`
	CurrencyCode string `xml:"currencyCode"`
	CVC          string `xml:"cvc"`
	ExpDate      string `xml:"expDate"`
	OrderID      string `xml:"orderID"`
	Installment  string `xml:"installment"`
}

type xmlCapt struct {
	HostLogKey   string `xml:"hostLogKey"`
	Amount       int64  `xml:"amount"`
	CurrencyCode string `xml:"currencyCode"`
	Installment  string `xml:"installment"`
}

type xmlReverse struct {
	Transaction string `xml:"transaction"`
	HostLogKey  string `xml:"hostLogKey"`
}

type xmlReturn struct {
	Amount       int64  `xml:"amount"`
	CurrencyCode string `xml:"currencyCode"`
	HostLogKey   string `xml:"hostLogKey"`
}

type xmlPointInquiry struct {
	CardNumber string `xml:"ccno"`
	ExpDate    string `xml:"expDate"`
}

type xmlAgreement struct {
	OrderID string `xml:"orderID"`
}

type xmlOOSRequestData struct {
	PosnetID       string `xml:"posnetid"`
	XID            string `xml:"XID"`
	Amount         int64  `xml:"amount"`
	CurrencyCode   string `xml:"currencyCode"`
	Installment    string `xml:"installment"`
	TranType       string `xml:"tranType"`
	CardHolderName string `xml:"cardHolderName,omitempty"`
	CardNumber     string `xml:"ccno"`
	ExpDate        string `xml:"expDate"`
	CVC            string `xml:"cvc"`
}

type xmlOOSResolve struct {
	BankData     string `xml:"bankData"`
	MerchantData string `xml:"merchantData"`
	Sign         string `xml:"sign"`
	Mac          string `xml:"mac"`
}

type xmlOOSTranData struct {
	BankData string `xml:"bankData"`
	WPAmount int64  `xml:"wpAmount"`
	Mac      string `xml:"mac"`
}

type xmlResponse struct {
	XMLName    xml.Name `xml:"posnetResponse"`
	Approved   string   `xml:"approved"`
	RespCode   string   `xml:"respCode"`
	RespText   string   `xml:"respText"`
	HostLogKey string   `xml:"hostlogkey"`
	AuthCode   string   `xml:"authCode"`

	InstInfo  *xmlInstInfo  `xml:"instInfo"`
	PointInfo *xmlPointInfo `xml:"pointInfo"`

	OOSRequestData *xmlOOSRequestDataResponse `xml:"oosRequestDataResponse"`
	OOSResolve     *xmlOOSResolveResponse     `xml:"oosResolveMerchantDataResponse"`

	Transactions []xmlAgreementTransaction `xml:"transactions>transaction"`
}

type xmlInstInfo struct {
	InstQty string `xml:"inst1"`
	Amount  string `xml:"amnt1"`
}

type xmlPointInfo struct {
	Point       string `xml:"point"`
	PointAmount string `xml:"pointAmount"`
	TotalPoint  string `xml:"totalPoint"`
	TotalAmount string `xml:"totalPointAmount"`
}

type xmlOOSRequestDataResponse struct {
	Data1 string `xml:"data1"`
	Data2 string `xml:"data2"`
	Sign  string `xml:"sign"`
}

type xmlOOSResolveResponse struct {
	XID            string `xml:"xid"`
	Amount         string `xml:"amount"`
	Currency       string `xml:"currency"`
	Installment    string `xml:"installment"`
	Point          string `xml:"point"`
	PointAmount    string `xml:"pointAmount"`
	TxStatus       string `xml:"txStatus"`
	MdStatus       string `xml:"mdStatus"`
	MdErrorMessage string `xml:"mdErrorMessage"`
	Mac            string `xml:"mac"`
}

type xmlAgreementTransaction struct {
	OrderID    string `xml:"orderID"`
	HostLogKey string `xml:"hostLogKey"`
	State      string `xml:"state"`
	TxnType    string `xml:"txnType"`
	Amount     string `xml:"amount"`
	Currency   string `xml:"currencyCode"`
	AuthCode   string `xml:"authCode"`
	TranDate   string `xml:"tranDate"`
}

// Marshal encodes req as an ISO-8859-9 <posnetRequest> document. Characters the
// charset cannot represent are replaced rather than failing the request.
func Marshal(req Request) ([]byte, error) {
	env, err := req.envelope()
	if err != nil {
		return nil, fmt.Errorf("build %s envelope: %w", req.Operation(), err)
	}
	h := req.Credentials()
	env.MID = h.MerchantID
	env.TID = h.TerminalID

	body, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", req.Operation(), err)
	}

	encoder := encoding.ReplaceUnsupported(charmap.ISO8859_9.NewEncoder())
	encoded, err := encoder.Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Operation(), err)
	}
	return append([]byte(xmlHeader), encoded...), nil
}

func (r *SaleRequest) envelope() (*xmlRequest, error) {
	tx, err := cardTx(r.OrderID, r.Amount, r.Currency, r.Installment, r.Card)
	if err != nil {
		return nil, err
	}
	return &xmlRequest{Sale: tx}, nil
}

func (r *AuthorizeRequest) envelope() (*xmlRequest, error) {
	tx, err := cardTx(r.OrderID, r.Amount, r.Currency, r.Installment, r.Card)
	if err != nil {
		return nil, err
	}
	return &xmlRequest{Auth: tx}, nil
}

func cardTx(orderID string, amount int64, currency domain.Currency, installment string, card domain.CardInfo) (*xmlCardTx, error) {
	expiry, err := card.Expiry()
	if err != nil {
		return nil, err
	}
	return &xmlCardTx{
		Amount:       amount,
		CardNumber:   card.Number,
		CurrencyCode: string(currency),
		CVC:          card.CVV,
		ExpDate:      expiry,
		OrderID:      orderID,
		Installment:  installment,
	}, nil
}

func (r *CaptureRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{Capt: &xmlCapt{
		HostLogKey:   string(r.HostLogKey),
		Amount:       r.Amount,
		CurrencyCode: string(r.Currency),
		Installment:  r.Installment,
	}}, nil
}

func (r *ReverseRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{Reverse: &xmlReverse{
		Transaction: string(r.Transaction),
		HostLogKey:  string(r.HostLogKey),
	}}, nil
}

func (r *ReturnRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{Return: &xmlReturn{
		Amount:       r.Amount,
		CurrencyCode: string(r.Currency),
		HostLogKey:   string(r.HostLogKey),
	}}, nil
}

func (r *PointInquiryRequest) envelope() (*xmlRequest, error) {
	expiry, err := r.Card.Expiry()
	if err != nil {
		return nil, err
	}
	return &xmlRequest{PointInquiry: &xmlPointInquiry{
		CardNumber: r.Card.Number,
		ExpDate:    expiry,
	}}, nil
}

func (r *AgreementStatusQueryRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{Agreement: &xmlAgreement{OrderID: r.OrderID}}, nil
}

func (r *ThreeDSecureInitiateRequest) envelope() (*xmlRequest, error) {
	expiry, err := r.Card.Expiry()
	if err != nil {
		return nil, err
	}
	return &xmlRequest{OOSRequestData: &xmlOOSRequestData{
		PosnetID:       r.PosnetID,
		XID:            r.XID,
		Amount:         r.Amount,
		CurrencyCode:   string(r.Currency),
		Installment:    r.Installment,
		TranType:       string(r.TranType),
		CardHolderName: r.Card.HolderName,
		CardNumber:     r.Card.Number,
		ExpDate:        expiry,
		CVC:            r.Card.CVV,
	}}, nil
}

func (r *ThreeDSecureResolveRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{OOSResolve: &xmlOOSResolve{
		BankData:     r.BankData,
		MerchantData: r.MerchantData,
		Sign:         r.Sign,
		Mac:          r.Mac,
	}}, nil
}

func (r *ThreeDSecureFinalizeRequest) envelope() (*xmlRequest, error) {
	return &xmlRequest{OOSTranData: &xmlOOSTranData{
		BankData: r.BankData,
		WPAmount: r.WorldPointAmount,
		Mac:      r.Mac,
	}}, nil
}

func decodeResponse(raw []byte) (*xmlResponse, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charsetReader

	var resp xmlResponse
	if err := decoder.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// optionalInt parses an integer field the gateway may omit.
func optionalInt(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
