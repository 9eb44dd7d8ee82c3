package disambig

// English holds log10 odds of letter bigrams in English text. Row is the
// previous character and column the next, indexed A-Z then word boundary.
// Pairs never observed carry -14.
var English = Table{
	// A
	{
		-3.06444917, -1.34919979, -1.21516227, -1.48849199, -1.68345804, -2.13915731, -1.53927729, -2.30992097, -1.65223576,
		-2.96856224, -1.98626255, -0.86290212, -1.41207009, -0.86846275, -2.88103975, -1.44724319, -2.93823498, -0.96919091,
		-1.24991434, -0.84715106, -1.73403540, -1.92754218, -2.18050954, -2.36174839, -2.05418248, -2.30249187, -1.25686109,
	},
	// B
	{
		-0.86700280, -1.57252262, -2.21470802, -2.15063419, -0.85838793, -2.64741013, -2.86625337, -2.53393102, -0.85579745,
		-2.39753266, -3.24947013, -0.71196585, -2.43102428, -2.58566454, -0.96272682, -2.49190541, -3.80577263, -1.02079892,
		-1.62250278, -2.11380752, -1.13878691, -2.65655351, -2.91367802, -4.20371264, -2.03052637, -3.80577263, -2.00095195,
	},
	// C
	{
		-0.81779080, -3.82291533, -1.80697273, -3.46036730, -1.01134033, -3.90588957, -4.03851513, -0.88749570, -1.12466345,
		-14, -1.37006265, -1.47809607, -3.46863982, -2.82670832, -0.80160017, -3.56139388, -2.93422317, -1.26368546,
		-2.17138450, -1.17172162, -1.29522940, -4.88361317, -3.88361317, -5.18464317, -1.63331518, -3.53143065, -1.04823972,
	},
	// D
	{
		-1.11734458, -2.49992503, -2.75061200, -1.79325968, -0.70847354, -2.51851393, -2.04139268, -2.37347254, -0.76714953,
		-2.58546072, -3.39105022, -1.57423274, -2.26211741, -1.90029807, -1.13384135, -2.78899023, -3.97462681, -1.35232642,
		-1.61971842, -2.89244005, -1.51788131, -2.47977679, -2.36008111, -4.75277806, -1.80363211, -3.45174806, -0.56394797,
	},
	// E
	{
		-1.39843751, -2.09255501, -1.45579881, -1.08606506, -1.71167804, -1.99891232, -1.95163849, -2.41106400, -1.93563049,
		-2.97801903, -2.73372941, -1.28374630, -1.47105643, -0.99097603, -1.83725078, -1.64071107, -2.60676454, -0.75149724,
		-0.90426366, -1.31743620, -1.92346788, -2.04615555, -2.20151596, -1.86180386, -2.33441683, -2.92250170, -0.82015186,
	},
	// F
	{
		-1.04213488, -2.90351078, -3.00264225, -2.99164687, -0.88088886, -1.10770167, -3.21349562, -2.97045757, -0.74693690,
		-3.69061687, -3.51452561, -0.98049951, -2.94049434, -2.95025418, -0.84980531, -3.13130886, -14, -1.14161361,
		-2.09127974, -1.50770315, -1.00175230, -4.29267686, -2.97045757, -4.11658560, -1.61919517, -3.81555561, -1.52477925,
	},
	// G
	{
		-1.02989865, -2.62045679, -3.38564306, -2.82370029, -0.84099149, -2.83433661, -1.59222248, -1.46014897, -0.98632572,
		-3.83794073, -3.37305394, -1.16430555, -1.99026527, -1.47292099, -1.23209719, -3.07827289, -4.91712198, -1.05546811,
		-1.69129599, -2.58874238, -1.33505862, -4.21815198, -2.59283952, -14, -1.60241229, -3.83794073, -0.62724330,
	},
	// H
	{
		-0.81738650, -2.47838786, -2.90106825, -2.82564715, -0.69141459, -2.55222647, -3.07903551, -2.91630821, -0.79526452,
		-3.78943498, -3.17313455, -1.71388802, -2.00935781, -1.96901456, -0.79388753, -2.70784766, -3.88634499, -1.35486607,
		-2.04331996, -1.57107456, -1.51821313, -3.44701230, -2.35380293, -14, -1.05319788, -3.71025373, -1.18233755,
	},
	// I
	{
		-1.18029901, -1.82623855, -0.93926500, -1.33668053, -1.36757644, -1.70030125, -1.64798277, -2.87230614, -2.73287687,
		-3.37498150, -2.07510457, -1.29230491, -1.57423319, -0.71102372, -1.15238325, -1.64860011, -2.79658543, -1.63300666,
		-0.93323877, -1.10015914, -2.14491982, -1.57277809, -3.32823810, -2.61076007, -3.53651404, -1.57210416, -1.96766787,
	},
	// J
	{
		-0.59762514, -3.43584436, -3.03790435, -2.78263185, -0.71362190, -14, -3.43584436, -2.83378437, -1.12092430,
		-2.95872311, -3.13481437, -3.25975310, -3.13481437, -2.53275437, -0.72488124, -3.25975310, -14, -2.69548167,
		-3.25975310, -3.25975310, -0.57163003, -3.73687436, -3.43584436, -14, -2.89177632, -14, -2.25975310,
	},
	// K
	{
		-1.05747858, -2.01674189, -2.66493361, -2.63596991, -0.53155990, -2.14732823, -2.87205910, -1.76090865, -0.77274302,
		-3.03042159, -2.30778767, -1.35135727, -2.04454623, -1.54243526, -1.41174605, -2.28223356, -4.42836160, -1.83507553,
		-1.18038833, -2.01674189, -1.74261986, -2.95124035, -1.95269041, -4.42836160, -1.60228680, -3.95124035, -0.87997218,
	},
	// L
	{
		-0.89100285, -2.41885644, -2.17992939, -1.92435727, -0.75107051, -2.31395412, -2.35889623, -2.87654549, -0.77268896,
		-3.98881526, -2.33512047, -1.01670503, -2.14402754, -2.25441552, -1.01239650, -2.12608773, -4.01109166, -3.02502743,
		-1.81767411, -1.73973926, -1.46202383, -2.25241876, -2.80697167, -4.28984526, -0.98457990, -3.58227508, -1.02684868,
	},
	// M
	{
		-0.72879673, -1.38536031, -3.01772739, -3.05826093, -0.74611578, -2.65843678, -3.45384704, -3.11895877, -0.76408235,
		-3.74329516, -3.46574626, -2.44112378, -1.48713466, -2.01686825, -0.92768246, -1.18200543, -4.24389751, -2.93214365,
		-1.75464234, -3.01344859, -1.41912105, -3.12442167, -3.05826093, -5.02204876, -1.57427075, -3.84595750, -1.00505718,
	},
	// N
	{
		-1.13012136, -2.24722255, -1.27115659, -1.22231420, -0.89173617, -1.86678248, -0.92746634, -2.25213336, -1.05235635,
		-2.68275695, -2.05761014, -2.14660502, -2.19468191, -1.80394032, -1.09028665, -1.99576475, -2.71111859, -2.08152974,
		-1.23873011, -0.93011989, -1.88178193, -2.13608195, -2.42729960, -3.36700370, -2.15763764, -2.67861684, -0.99154331,
	},
	// O
	{
		-1.83639454, -1.72091428, -1.36307978, -1.51342582, -1.94738711, -2.06927816, -1.37250033, -2.38871234, -1.63608106,
		-3.21037376, -2.14979775, -1.13834930, -1.16949081, -0.72798894, -1.52709426, -1.22807334, -2.88350956, -0.94116220,
		-1.20685763, -1.29031779, -1.11027014, -1.59479700, -1.75972740, -2.10076255, -2.37539959, -2.51932080, -1.84718651,
	},
	// P
	{
		-0.95721769, -2.74386525, -2.90333077, -3.08249126, -0.81961118, -2.81010644, -3.19229625, -0.83124146, -1.04311933,
		-3.75458911, -3.20436076, -1.18986389, -2.70537109, -2.32322535, -0.95614565, -1.50210017, -4.45355912, -0.88494677,
		-1.46779594, -1.39446925, -1.47423842, -4.15252912, -2.78377750, -5.05561911, -1.80325160, -5.05561911, -1.61834431,
	},
	// Q
	{
		-2.44737955, -14, -14, -3.46856885, -2.99144759, -3.76959884, -3.76959884, -3.46856885, -2.51432634,
		-14, -14, -3.46856885, -3.76959884, -3.46856885, -3.16753885, -3.46856885, -3.16753885, -2.99144759,
		-3.07062884, -2.86650886, -0.00895022, -3.46856885, -3.46856885, -14, -3.76959884, -14, -2.29247759,
	},
	// R
	{
		-0.84443689, -1.90165262, -1.63220170, -1.63783604, -0.78887961, -2.20934566, -1.87850485, -2.07375275, -0.83947095,
		-3.12873816, -2.10630753, -1.94063224, -1.56472570, -1.75691355, -0.89842886, -1.84625348, -3.22387191, -1.63137037,
		-1.31721443, -1.46484680, -1.60792902, -2.15314315, -2.43598271, -4.31200800, -1.51134819, -3.31564229, -1.07379457,
	},
	// S
	{
		-1.43121282, -2.71448595, -1.41984176, -2.99019312, -1.07955621, -2.71269134, -2.97192182, -1.34933140, -1.14061057,
		-3.54717473, -2.13717021, -1.82393881, -1.53600353, -1.98799330, -1.45266916, -1.46641618, -2.38940734, -2.94972676,
		-1.07913960, -0.86539860, -1.37906751, -3.28448973, -2.24859839, -14, -1.92029965, -4.09740309, -0.51953231,
	},
	// T
	{
		-1.03878418, -2.63263413, -2.11348465, -3.07116033, -0.71770928, -2.48951481, -2.93044711, -1.14532750, -0.66754089,
		-3.53734160, -3.52456731, -1.82296179, -2.41794782, -2.50789725, -1.03385582, -2.76681931, -4.06238641, -1.05442538,
		-1.60983335, -1.59804592, -1.50003406, -3.44960255, -2.30918649, -4.51831836, -1.49630262, -2.83193749, -1.04579176,
	},
	// U
	{
		-1.50296249, -1.39496456, -1.46310204, -1.55555013, -1.58084175, -2.13303718, -1.74508139, -3.09772324, -1.50065519,
		-3.21582255, -2.39381802, -0.96969342, -1.17546749, -0.67775176, -2.10104482, -1.41262158, -3.50612868, -0.96573816,
		-0.82143654, -1.14996286, -3.27381450, -2.46570002, -3.64179128, -2.51360749, -2.95159520, -2.67175451, -2.20935651,
	},
	// V
	{
		-0.81879613, -4.51949985, -3.67440181, -3.56525734, -0.27042384, -14, -3.61640986, -4.51949985, -0.68948891,
		-14, -3.74134860, -3.24074625, -4.04237859, -3.40555650, -1.11193900, -4.04237859, -14, -2.49831055,
		-3.10452650, -3.61640986, -1.85768716, -2.87604717, -4.21846985, -14, -2.39239505, -3.91743986, -2.37028074,
	},
	// W
	{
		-0.66455243, -1.96477744, -2.49912536, -1.95244370, -0.80693653, -2.21366314, -2.65141370, -1.18632842, -0.78892454,
		-3.65141370, -2.09511120, -1.56150859, -2.18901571, -1.36856510, -0.83903519, -2.33754648, -4.04935371, -1.48173927,
		-1.49365482, -2.13027562, -2.30116569, -4.04935371, -2.43656986, -14, -2.14626373, -3.04935371, -1.37129081,
	},
	// X
	{
		-0.99971037, -2.40811581, -1.23343919, -2.76562716, -0.97362480, -2.40811581, -2.90695632, -1.74214607, -0.69048589,
		-14, -3.71986967, -2.24274842, -2.50238573, -2.90695632, -1.14065789, -1.03323340, -2.90695632, -2.90695632,
		-2.01657829, -0.94901766, -1.56605481, -3.11780968, -2.45269794, -3.02089967, -1.14123046, -4.02089967, -1.00932922,
	},
	// Y
	{
		-1.52770497, -2.17198804, -1.49265579, -1.67578695, -1.61976824, -2.49457321, -1.88916327, -2.52646235, -1.69001767,
		-3.84868165, -2.92960356, -1.26198185, -1.46865140, -1.48225869, -1.62105200, -1.27592618, -4.14971164, -1.53947747,
		-1.28579427, -1.50744503, -2.51624319, -3.26889805, -2.35592126, -2.54765165, -3.89443914, -2.50232867, -0.28310535,
	},
	// Z
	{
		-0.78196437, -2.84677878, -2.96487809, -2.84677878, -0.37034743, -3.69187682, -3.21475556, -2.99290681, -0.80557414,
		-3.86796808, -3.02287004, -1.74575220, -2.99290681, -3.08981683, -0.90229611, -2.96487809, -3.56693808, -3.12760539,
		-2.99290681, -3.02287004, -2.05172678, -3.21475556, -2.91372557, -14, -1.52357580, -1.41541501, -1.76759753,
	},
	// word boundary
	{
		-1.16319948, -1.30319922, -1.06172405, -1.29571644, -1.41612719, -1.49303235, -1.52879069, -1.43024223, -1.44778275,
		-2.11500543, -1.97150684, -1.56823692, -1.27154893, -1.43934325, -1.46517027, -1.02599639, -2.31474348, -1.34345418,
		-0.97989519, -1.29372723, -1.21101797, -1.84167805, -1.75148614, -2.86331581, -2.51027754, -2.42624731, -14,
	},
}
