package conversation

import (
	"fmt"
	"strings"

	"github.com/Spok95/estimate-bot/internal/command"
	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message ответ пользователю без привязки к мессенджеру.
// Title краткое название карточки (alt-текст), пустое для простого текста.
type Message struct {
	Title    string
	Text     string
	Sections []Section
	// Buttons ряды кнопок.
	Buttons [][]Button
}

type Section struct {
	Heading string
	Lines   []string
}

type Button struct {
	Label string
	Data  string
}

// Plain текст целиком, с секциями.
func (m Message) Plain() string {
	var b strings.Builder
	b.WriteString(m.Text)
	for _, s := range m.Sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if s.Heading != "" {
			b.WriteString(s.Heading)
			if len(s.Lines) > 0 {
				b.WriteString("\n")
			}
		}
		b.WriteString(strings.Join(s.Lines, "\n"))
	}
	return b.String()
}

func text(s string) Message { return Message{Text: s} }

const (
	msgPickService       = "請問您需要哪些服務？（第 %d 頁）"
	msgAskQuantity       = "請問 %s 需要幾%s？"
	msgInvalidQuantity   = "請輸入有效的數量（正整數）"
	msgNothingSelected   = "您尚未選擇任何服務項目。"
	msgSelectFirst       = "您尚未選擇任何服務項目，請先選擇服務項目。"
	msgUnknownService    = "❗ 找不到此服務項目，可能已下架，請重新選擇。"
	msgQuoteAdded        = "%s\n✅ 已加入估價紀錄（請專人報價）"
	msgItemAdded         = "%s 共 %d%s\n估價金額約 %s\n✅ 已加入估價紀錄"
	msgQuoteOnRequest    = "請專人報價"
	msgDeleted           = "✅ 已成功刪除第%d項：%s"
	msgLedgerEmpty       = "（目前已無任何服務項目）"
	msgDeleteMore        = "✏️ 如需繼續刪除，請再輸入：✂️ 刪除第N項"
	msgDeleteFormat      = "❗請輸入正確的格式，例如：✂️ 刪除第2項"
	msgModifyFormat      = "❗ 請輸入正確的格式，例如：📝 修改第2項為5個"
	msgModifyQuantity    = "❗ 數量必須為正整數，例如：📝 修改第2項為5個"
	msgNoSuchItem        = "❗ 找不到第%d項，目前共有 %d 項。"
	msgModifyQuote       = "❗ 此項目為專人報價，無法修改數量。"
	msgModified          = "✅ 已成功將第%d項《%s》修改為 %d%s\n新估價 ➜ %s"
	msgEditLocked        = "❗ 目前無法直接修改項目，請點選【✏️ 修改估價】返回選擇服務。"
	msgPickLocked        = "❗ 估價已進入填寫聯絡資料階段，如需更改項目請點選【✏️ 修改估價】。"
	msgBooked            = "✅ 已收到您的預約申請，此估價為初估，還是依實際現場報價為主，我們將盡快與您聯繫！\n📄 估價單號：%s"
	msgAlreadyBooked     = "✅ 您的預約申請已送出（估價單號：%s）。\n如需重新估價，請輸入：我要估價"
	msgBookingNotReady   = "❗ 請先完成估價與聯絡資料，再點選【✅ 我要預約】。"
	msgFinishHints       = "🔧 如需修改，請輸入：📝 修改第N項為X個\n✂️ 如需刪除，請輸入：✂️ 刪除第N項\n\n✅ 若無需修改，請點選下方【確認估價】開始填寫聯絡資料"
	msgConfirmPrompt     = "✅ 若無需修改，請點下方按鈕確認估價"
	msgOperatorHeader    = "💬 有一筆新的估價申請"
	msgOperatorFormTitle = "💬 有一筆新的表單估價單"
)

var contactPrompts = [...]string{
	"1️⃣ 請輸入您的姓名：",
	"2️⃣ 請輸入您的電話號碼：",
	"3️⃣ 請輸入施工地址：",
	"4️⃣ 請輸入勘場時間：",
}

const (
	labelNextPage       = "➕ 下一頁"
	labelPrevPage       = "⬅️ 上一頁"
	labelFinish         = "✅ 完成選擇"
	labelConfirm        = "✅ 確認估價"
	labelBook           = "✅ 我要預約"
	labelModifyEstimate = "✏️ 修改估價"
)

// Money сумма в формате NT$1,234.
func Money(v int64) string {
	return message.NewPrinter(language.English).Sprintf("NT$%d", v)
}

// Range диапазон цены позиции или «по запросу».
func Range(low, high int64) string {
	return Money(low) + " ~ " + Money(high)
}

func itemPrice(it ledger.Item) string {
	if it.QuoteOnRequest() {
		return "💬 將由專人聯繫報價"
	}
	return Range(it.TotalLow, it.TotalHigh)
}

// menu страница каталога с кнопками услуг и навигации.
func menu(c *catalog.Catalog, page, size int) Message {
	page = c.ClampPage(page, size)
	total := c.TotalPages(size)

	var rows [][]Button
	for _, e := range c.Page(page, size) {
		rows = append(rows, []Button{{Label: e.Label(), Data: command.SelectServiceData(e.Name)}})
	}
	var nav []Button
	if page < total {
		nav = append(nav, Button{Label: labelNextPage, Data: command.NextPageData(page + 1)})
	}
	if page > 1 {
		nav = append(nav, Button{Label: labelPrevPage, Data: command.PrevPageData(page - 1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []Button{{Label: labelFinish, Data: command.ActionFinishSelection}})

	return Message{Text: fmt.Sprintf(msgPickService, page), Buttons: rows}
}

// Summary нумерованный список позиций и итог.
func Summary(items ledger.Ledger) Section {
	lines := make([]string, 0, len(items)+2)
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("%d. %s ×%d%s ➜ %s", i+1, it.Name, it.Quantity, it.Unit, itemPrice(it)))
	}
	low, high := items.Aggregate()
	lines = append(lines, "", "💰 預估總金額："+Range(low, high))
	return Section{Heading: "📋 已選項目：", Lines: lines}
}

// confirmAffordance единая карточка с кнопкой подтверждения сметы.
func confirmAffordance() Message {
	return Message{
		Title:   "請確認估價",
		Text:    msgConfirmPrompt,
		Buttons: [][]Button{{{Label: labelConfirm, Data: command.ActionConfirmEstimate}}},
	}
}

func modifyButton() [][]Button {
	return [][]Button{{{Label: labelModifyEstimate, Data: command.ActionModifyEstimate}}}
}

// DetailLines строки позиций для карточки и уведомлений.
func DetailLines(items ledger.Ledger) []string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		l := fmt.Sprintf("▫️ %s ×%d%s ➜ %s", it.Name, it.Quantity, it.Unit, itemPrice(it))
		if it.Remark != "" {
			l += "\n  📌 " + it.Remark
		}
		lines = append(lines, l)
	}
	return lines
}

// preview карточка сметы с кнопками «записаться» и «изменить».
func preview(e estimates.Estimate) Message {
	return Message{
		Title: "估價單",
		Text:  "📥 估價單",
		Sections: []Section{
			{Lines: contactLines(e)},
			{Heading: "🔧 項目明細：", Lines: DetailLines(e.Items)},
			{Lines: []string{"💰 總金額：" + Range(e.TotalLow, e.TotalHigh)}},
		},
		Buttons: [][]Button{
			{{Label: labelBook, Data: command.ActionConfirmBooking}},
			{{Label: labelModifyEstimate, Data: command.ActionModifyEstimate}},
		},
	}
}

func contactLines(e estimates.Estimate) []string {
	return []string{
		"👤 " + e.Name,
		"📞 " + e.Phone,
		"📍 " + e.Address,
		"📅 " + e.VisitTime,
	}
}

// OperatorText текст уведомления оператору о новой смете.
func OperatorText(e estimates.Estimate) string {
	header := msgOperatorHeader
	if e.Source == estimates.SourceForm {
		header = msgOperatorFormTitle
	}
	m := Message{
		Text: header + "\n📄 " + e.Ref,
		Sections: []Section{
			{Lines: []string{
				"👤 " + e.Name + "｜📞 " + e.Phone,
				"📍 " + e.Address,
				"⏰ " + e.VisitTime,
			}},
			{Heading: "🧾 明細：", Lines: DetailLines(e.Items)},
			{Lines: []string{"💰 總金額：" + Range(e.TotalLow, e.TotalHigh)}},
		},
	}
	return m.Plain()
}
