package conversation

import "fmt"

const (
	LangEnglish = "en"
	LangUzbek   = "uz"
)

// DefaultLanguage is used when neither the session nor the client names a
// supported language.
const DefaultLanguage = LangEnglish

// SupportedLanguage reports whether lang has a message table.
func SupportedLanguage(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// T renders the message key in lang, falling back to English.
func T(lang, key string, args ...any) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[DefaultLanguage]
	}
	text, ok := table[key]
	if !ok {
		text = messages[DefaultLanguage][key]
	}
	if text == "" {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

var messages = map[string]map[string]string{
	LangEnglish: {
		"welcome":              "👋 Welcome, %s!\n\nHere you can browse our mentors, buy courses and take lesson quizzes.",
		"enter_name":           "📝 Please tell us your name to register.",
		"help":                 "📖 How it works\n\n1. Pick a mentor and one of their courses\n2. Free lessons open right away\n3. Buy the course by bank transfer and send a screenshot\n4. An admin confirms the payment and all lessons open\n5. Score 100% on a lesson quiz to unlock the next lesson for free\n\n/start - main menu\n/language - change language\n/help - this help",
		"choose_language":      "🌐 Choose your language",
		"language_changed":     "✅ Language set to English.",
		"mentors_header":       "👨‍🏫 Our mentors:",
		"no_mentors":           "No mentors yet. Please check back later.",
		"mentor_details":       "👤 %s\n\n%s",
		"no_courses":           "This mentor has no courses yet.",
		"course_details":       "📚 %s\n\n%s\n\n💰 Price: %s %s",
		"course_owned":         "✅ You own this course.",
		"lesson_locked":        "🔒 This lesson is locked. Buy the course or score 100% on the previous lesson's quiz to open it.",
		"lesson_content":       "📖 %s\n\n%s",
		"already_purchased":    "✅ You already own this course.",
		"payment_instructions": "💳 To buy \"%s\" transfer %s %s to the card below and send a screenshot of the transfer here.\n\n%s",
		"payment_reused":       "You already have an open payment for this course.",
		"send_screenshot":      "📸 Please send the transfer screenshot as a photo, or cancel the payment.",
		"screenshot_received":  "⏳ Screenshot received. An admin will verify your payment soon.",
		"screenshot_unsent":    "⚠️ Your screenshot is saved, but no administrator could be reached yet. We will retry automatically.",
		"payment_cancelled":    "❌ Payment cancelled.",
		"quiz_question":        "❓ Question %d/%d\n\n%s",
		"answer_correct":       "✅ Correct!",
		"answer_wrong":         "❌ Wrong. The correct answer was: %s",
		"quiz_result":          "🏁 Quiz finished: %d/%d (%.0f%%).",
		"quiz_unlocked":        "🎉 Perfect score! Lesson \"%s\" is now unlocked.",
		"webinars_header":      "🎥 Webinars:",
		"webinar_line":         "• %s (%d min)",
		"no_webinars":          "No webinars yet.",
		"admin_confirmed":      "✅ Payment #%d confirmed.",
		"admin_rejected":       "❌ Payment #%d rejected.",
		"student_unreachable":  "The student could not be notified.",
		"student_confirmed":    "🎉 Your payment for \"%s\" is confirmed. All lessons are open now!",
		"student_rejected":     "❌ Your payment for \"%s\" was rejected. Contact support if you think this is a mistake.",
		"admin_payment":        "💳 Payment #%d\n👤 %s (id %d)\n📚 %s\n💰 %s %s",
		"admin_reminder":       "⏰ Still waiting for a decision",
		"admin_outcome":        "Resolved: %s",
		"throttled":            "⏳ Too many requests, please slow down.",
		"not_admin":            "You are not allowed to do that.",
		"report_caption":       "📊 Payments report",
		"import_prompt":        "📥 Send the catalog workbook (.xlsx) as a document.",
		"import_result":        "✅ Imported %d rows, skipped %d.",
		"import_failed":        "❌ Import failed: %s",
		"reminded":             "⏰ %d pending payments sent to the admins.",

		"btn_mentors":        "👨‍🏫 Mentors",
		"btn_webinars":       "🎥 Webinars",
		"btn_language":       "🌐 Language",
		"btn_help":           "📖 Help",
		"btn_start":          "🏠 Main menu",
		"btn_pay":            "💳 Buy for %s %s",
		"btn_cancel_payment": "❌ Cancel payment",
		"btn_back_course":    "⬅️ Back to lessons",
		"btn_back_mentor":    "⬅️ Back to courses",
		"btn_open_course":    "📚 Open course",
		"btn_start_quiz":     "📝 Take the quiz",
		"btn_open_lesson":    "▶️ Open \"%s\"",
		"btn_confirm":        "✅ Confirm",
		"btn_reject":         "❌ Reject",
		"mark_free":          "🆓",
		"mark_locked":        "🔒",

		"err_authentication": "⚠️ We could not sign you in. Please send /start to try again.",
		"err_not_found":      "Sorry, we could not find that.",
		"err_processed":      "ℹ️ This payment has already been processed.",
		"err_unauthorized":   "⛔ You are not allowed to do that.",
		"err_validation":     "⚠️ That input is not valid.",
		"err_notification":   "⚠️ We could not reach the administrators. Please try again later.",
		"err_invalid_option": "Please select a valid option.",
		"err_expired":        "⌛ Your session has expired. Please start again with /start.",
		"err_no_quiz":        "This lesson has no quiz.",
		"err_quiz_order":     "Please answer the current question.",
		"err_internal":       "⚠️ Something went wrong. Please try again later.",
	},
	LangUzbek: {
		"welcome":              "👋 Xush kelibsiz, %s!\n\nBu yerda mentorlarimizni ko'rishingiz, kurslar sotib olishingiz va dars testlarini topshirishingiz mumkin.",
		"enter_name":           "📝 Ro'yxatdan o'tish uchun ismingizni yozing.",
		"help":                 "📖 Qanday ishlaydi\n\n1. Mentor va uning kursini tanlang\n2. Bepul darslar darhol ochiladi\n3. Kursni bank o'tkazmasi orqali sotib oling va skrinshot yuboring\n4. Admin to'lovni tasdiqlaydi va barcha darslar ochiladi\n5. Dars testidan 100% olsangiz, keyingi dars bepul ochiladi\n\n/start - asosiy menyu\n/language - tilni o'zgartirish\n/help - yordam",
		"choose_language":      "🌐 Tilni tanlang",
		"language_changed":     "✅ Til o'zbekchaga o'zgartirildi.",
		"mentors_header":       "👨‍🏫 Mentorlarimiz:",
		"no_mentors":           "Hozircha mentorlar yo'q.",
		"mentor_details":       "👤 %s\n\n%s",
		"no_courses":           "Bu mentorning hozircha kurslari yo'q.",
		"course_details":       "📚 %s\n\n%s\n\n💰 Narxi: %s %s",
		"course_owned":         "✅ Bu kurs sizda bor.",
		"lesson_locked":        "🔒 Bu dars yopiq. Kursni sotib oling yoki oldingi dars testidan 100% oling.",
		"lesson_content":       "📖 %s\n\n%s",
		"already_purchased":    "✅ Siz bu kursni allaqachon sotib olgansiz.",
		"payment_instructions": "💳 \"%s\" kursini sotib olish uchun %s %s miqdorini quyidagi kartaga o'tkazing va o'tkazma skrinshotini shu yerga yuboring.\n\n%s",
		"payment_reused":       "Bu kurs uchun ochiq to'lovingiz bor.",
		"send_screenshot":      "📸 Iltimos, o'tkazma skrinshotini rasm sifatida yuboring yoki to'lovni bekor qiling.",
		"screenshot_received":  "⏳ Skrinshot qabul qilindi. Admin tez orada to'lovingizni tekshiradi.",
		"screenshot_unsent":    "⚠️ Skrinshotingiz saqlandi, lekin hozircha adminlarga yetkazib bo'lmadi. Qayta urinib ko'ramiz.",
		"payment_cancelled":    "❌ To'lov bekor qilindi.",
		"quiz_question":        "❓ Savol %d/%d\n\n%s",
		"answer_correct":       "✅ To'g'ri!",
		"answer_wrong":         "❌ Noto'g'ri. To'g'ri javob: %s",
		"quiz_result":          "🏁 Test yakunlandi: %d/%d (%.0f%%).",
		"quiz_unlocked":        "🎉 A'lo natija! \"%s\" darsi ochildi.",
		"webinars_header":      "🎥 Vebinarlar:",
		"webinar_line":         "• %s (%d daqiqa)",
		"no_webinars":          "Hozircha vebinarlar yo'q.",
		"student_confirmed":    "🎉 \"%s\" kursi uchun to'lovingiz tasdiqlandi. Barcha darslar ochiq!",
		"student_rejected":     "❌ \"%s\" kursi uchun to'lovingiz rad etildi. Xato deb hisoblasangiz, qo'llab-quvvatlash xizmatiga yozing.",
		"throttled":            "⏳ Juda ko'p so'rov, biroz kuting.",

		"btn_mentors":        "👨‍🏫 Mentorlar",
		"btn_webinars":       "🎥 Vebinarlar",
		"btn_language":       "🌐 Til",
		"btn_help":           "📖 Yordam",
		"btn_start":          "🏠 Asosiy menyu",
		"btn_pay":            "💳 %s %s ga sotib olish",
		"btn_cancel_payment": "❌ To'lovni bekor qilish",
		"btn_back_course":    "⬅️ Darslarga qaytish",
		"btn_back_mentor":    "⬅️ Kurslarga qaytish",
		"btn_open_course":    "📚 Kursni ochish",
		"btn_start_quiz":     "📝 Testni boshlash",
		"btn_open_lesson":    "▶️ \"%s\" ni ochish",

		"err_authentication": "⚠️ Tizimga kira olmadik. Qayta urinish uchun /start yuboring.",
		"err_not_found":      "Kechirasiz, topilmadi.",
		"err_processed":      "ℹ️ Bu to'lov allaqachon ko'rib chiqilgan.",
		"err_unauthorized":   "⛔ Sizga bunga ruxsat yo'q.",
		"err_validation":     "⚠️ Noto'g'ri ma'lumot.",
		"err_notification":   "⚠️ Adminlarga yetkazib bo'lmadi. Keyinroq urinib ko'ring.",
		"err_invalid_option": "Iltimos, to'g'ri variantni tanlang.",
		"err_expired":        "⌛ Sessiya muddati tugadi. /start bilan qaytadan boshlang.",
		"err_no_quiz":        "Bu darsda test yo'q.",
		"err_quiz_order":     "Iltimos, joriy savolga javob bering.",
		"err_internal":       "⚠️ Xatolik yuz berdi. Keyinroq urinib ko'ring.",
	},
}
