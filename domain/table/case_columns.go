package table

// CaseColumns is the canonical schema of a case sheet, in sheet order
var CaseColumns = []string{
	"STT",
	"Loại",
	"Tên",
	"Số thụ lý",
	"Ngày ban hành thụ lý",
	"Ngày nhận thụ lý",
	"Số ngày gia hạn",
	"Ngày hết hạn",
	"Thời hạn còn",
	"Kiểm sát viên",
	"TK tuần thụ lý",
	"TK tháng thụ lý",
	"Quyết định xét xử/họp",
	"Ngày",
	"Văn bản giải quyết",
	"Số giải quyết",
	"Ngày ban hành",
	"Ngày nhận",
	"TK tuần giải quyết",
	"TK tháng giải quyết",
	"PT RKN",
	"Ghi chú",
	"Thời hạn gửi thông báo thụ lý, quyết định tiếp tục, quyết định hòa giải thành",
	"Thời hạn gửi các quyết định, bản án",
}
